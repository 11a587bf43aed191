package web

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"invoicefetch/internal/config"
	"invoicefetch/internal/daterange"
	"invoicefetch/internal/ledger"
	"invoicefetch/internal/pipeline"
)

// fetchPDFsRequest is the body of POST /api/fetch.
type fetchPDFsRequest struct {
	Keyword  string `json:"keyword"`
	Folder   string `json:"folder"`
	FromDate string `json:"from_date"`
	ToDate   string `json:"to_date"`
}

func (s *Server) index(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", gin.H{"Mappings": s.mappings})
}

// fetchPDFs validates the request, consults the duplicate-range guard,
// runs the pipeline and appends the fetched window to the ledger.
func (s *Server) fetchPDFs(c *gin.Context) {
	var req fetchPDFsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Keyword == "" || req.Folder == "" || req.FromDate == "" || req.ToDate == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "keyword, folder, from_date and to_date are required"})
		return
	}
	if config.FolderFor(s.mappings, req.Keyword) != req.Folder {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("keyword %q does not map to folder %q", req.Keyword, req.Folder)})
		return
	}

	since, err := daterange.Parse(req.FromDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	before, err := daterange.Parse(req.ToDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := daterange.Validate(since, before, s.now()); err != nil {
		msg := "You cannot fetch data of future date"
		if errors.Is(err, daterange.ErrInvertedRange) {
			msg = "From date must not be after to date"
		}
		c.JSON(http.StatusOK, gin.H{"status": "error", "message": msg})
		return
	}

	overlaps, err := s.guard.Overlaps(req.Folder, since, before)
	if err != nil {
		s.logger.Error("failed to check fetch log", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if overlaps {
		c.JSON(http.StatusOK, gin.H{
			"status":  "error",
			"message": fmt.Sprintf("This date range has already been fetched for %s. View logs for more information.", req.Keyword),
		})
		return
	}

	report, err := s.runner.Run(c.Request.Context(), pipeline.FetchRequest{
		Keyword: req.Keyword,
		Folder:  req.Folder,
		Since:   since,
		Before:  before,
	})
	if err != nil {
		s.logger.Error("fetch failed", "folder", req.Folder, "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.logger.Info("fetch completed",
		"folder", req.Folder,
		"found", report.Found,
		"matched", len(report.Matched),
		"skipped_batches", len(report.SkippedBatches),
		"skipped_attachments", len(report.SkippedAttachments))

	message := report.Message
	if err := s.guard.Record(req.Folder, since, before); err != nil {
		// The fetch itself succeeded, but without the log line the
		// duplicate guard will let this window through again.
		s.logger.Error("failed to record fetch window", "folder", req.Folder, "error", err)
		message += " Warning: the fetch window could not be recorded; this range is not protected against re-fetching."
	}

	c.JSON(http.StatusOK, gin.H{"message": message})
}

// fetchLogs renders the fetch history as an HTML table fragment wrapped
// in JSON, newest entry first.
func (s *Server) fetchLogs(c *gin.Context) {
	entries, err := s.guard.Entries()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if entries == nil {
		entries = []ledger.Entry{}
	}

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "logs_table.html", gin.H{"Entries": entries}); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"log_entries": buf.String()})
}
