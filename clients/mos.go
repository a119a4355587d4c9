package clients

import (
	"context"
	"strings"
)

// --- DNSMOS (/dnsmos) ---
type MOSReq struct {
	Pred       []float64 `json:"pred"`
	Ref        []float64 `json:"ref"`
	SampleRate int       `json:"sample_rate"`
}
type MOSResp struct {
	MOS float64 `json:"mos"`
}

func (h *HTTP) DNSMOS(ctx context.Context, url string, req MOSReq) (*MOSResp, error) {
	var out MOSResp
	if err := h.postJSON(ctx, "dnsmos", strings.TrimRight(url, "/")+"/dnsmos", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MOS scores predicted/reference waveform pairs with the local DNSMOS model
// server. Both waveforms are single-channel and share sampleRate.
type MOS struct {
	http *HTTP
	url  string
}

func NewMOS(h *HTTP, url string) *MOS { return &MOS{http: h, url: url} }

func (m *MOS) Score(ctx context.Context, pred, ref []float64, sampleRate int) (float64, error) {
	resp, err := m.http.DNSMOS(ctx, m.url, MOSReq{Pred: pred, Ref: ref, SampleRate: sampleRate})
	if err != nil {
		return 0, err
	}
	return resp.MOS, nil
}
