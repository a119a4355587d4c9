// Package server exposes finished arena runs read-only over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/maastricht-university/dialogue-arena/orchestrator"
)

const runDirPrefix = "audio_"

type Server struct {
	root string
	log  logrus.FieldLogger
}

// RunSummary is one entry of GET /runs.
type RunSummary struct {
	Name    string          `json:"name"`
	RunID   string          `json:"run_id,omitempty"`
	Topic   string          `json:"topic,omitempty"`
	Results json.RawMessage `json:"results,omitempty"`
}

// RunDetail is the body of GET /runs/:name.
type RunDetail struct {
	Name     string          `json:"name"`
	Manifest json.RawMessage `json:"manifest,omitempty"`
	Results  json.RawMessage `json:"results,omitempty"`
	Files    []string        `json:"files"`
}

// New builds the router over the run directories found under root.
func New(root string, origins []string, log logrus.FieldLogger) *gin.Engine {
	s := &Server{root: root, log: log}

	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	config := cors.DefaultConfig()
	if len(origins) == 0 {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = origins
	}
	config.AllowMethods = []string{"GET"}
	r.Use(cors.New(config))

	r.GET("/runs", s.listRuns)
	r.GET("/runs/:name", s.getRun)
	r.GET("/runs/:name/files/:file", s.getFile)
	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"elapsed": time.Since(start).String(),
		}).Debug("request")
	}
}

func (s *Server) listRuns(c *gin.Context) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		s.log.WithError(err).Error("reading run root")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cannot read runs"})
		return
	}
	runs := []RunSummary{}
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), runDirPrefix) {
			continue
		}
		dir := filepath.Join(s.root, e.Name())
		sum := RunSummary{Name: e.Name(), Results: readRaw(filepath.Join(dir, orchestrator.ResultsFile))}
		if raw := readRaw(filepath.Join(dir, orchestrator.ManifestFile)); raw != nil {
			var m orchestrator.Manifest
			if err := json.Unmarshal(raw, &m); err == nil {
				sum.RunID, sum.Topic = m.RunID, m.Topic
			}
		}
		runs = append(runs, sum)
	}
	// newest first; names embed the start time
	sort.Slice(runs, func(i, j int) bool { return runs[i].Name > runs[j].Name })
	c.JSON(http.StatusOK, runs)
}

func (s *Server) getRun(c *gin.Context) {
	dir, ok := s.runDir(c)
	if !ok {
		return
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		s.log.WithError(err).WithField("dir", dir).Error("reading run")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cannot read run"})
		return
	}
	files := []string{}
	for _, e := range entries {
		if e.Type().IsRegular() {
			files = append(files, e.Name())
		}
	}
	c.JSON(http.StatusOK, RunDetail{
		Name:     filepath.Base(dir),
		Manifest: readRaw(filepath.Join(dir, orchestrator.ManifestFile)),
		Results:  readRaw(filepath.Join(dir, orchestrator.ResultsFile)),
		Files:    files,
	})
}

func (s *Server) getFile(c *gin.Context) {
	dir, ok := s.runDir(c)
	if !ok {
		return
	}
	name := c.Param("file")
	if !validName(name) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file name"})
		return
	}
	path := filepath.Join(dir, name)
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
		return
	}
	c.File(path)
}

// runDir resolves :name to a run directory, writing the error response
// itself when it cannot.
func (s *Server) runDir(c *gin.Context) (string, bool) {
	name := c.Param("name")
	if !validName(name) || !strings.HasPrefix(name, runDirPrefix) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run name"})
		return "", false
	}
	dir := filepath.Join(s.root, name)
	info, err := os.Stat(dir)
	switch {
	case errors.Is(err, fs.ErrNotExist) || (err == nil && !info.IsDir()):
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return "", false
	case err != nil:
		s.log.WithError(err).WithField("dir", dir).Error("stat run")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cannot read run"})
		return "", false
	}
	return dir, true
}

// validName accepts a single path element only.
func validName(name string) bool {
	return name != "" && name != "." && name != ".." &&
		!strings.ContainsAny(name, `/\`) && filepath.Base(name) == name
}

// readRaw returns the file when it holds valid JSON, nil otherwise.
func readRaw(path string) json.RawMessage {
	b, err := os.ReadFile(path)
	if err != nil || !json.Valid(b) {
		return nil
	}
	return b
}
