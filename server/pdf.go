package server

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/poiesic/pdfqa/core"
	"github.com/poiesic/pdfqa/search"
	"github.com/poiesic/pdfqa/vectorindex"
)

// multipartOverhead is the allowance for multipart framing on top of the file.
const multipartOverhead = 1 << 20

type askRequest struct {
	PDFID       string   `json:"pdfId" binding:"required"`
	Question    string   `json:"question" binding:"required"`
	Provider    string   `json:"provider"`
	Model       string   `json:"model"`
	Temperature *float64 `json:"temperature"`
	MaxTokens   int      `json:"maxTokens"`
}

type pdfJSON struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	UploadedAt time.Time `json:"uploadedAt"`
	PageCount  int       `json:"pageCount"`
}

func (s *Server) uploadPDF(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUploadSize+multipartOverhead)

	header, err := c.FormFile("pdfFile")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.fail(c, core.Invalid("pdfFile", "exceeds the upload size limit"), "File too large")
			return
		}
		s.fail(c, core.Invalid("pdfFile", "is required"), "No PDF file uploaded")
		return
	}
	if header.Size > s.maxUploadSize {
		s.fail(c, core.Invalid("pdfFile", "exceeds the upload size limit"), "File too large")
		return
	}
	mediaType, _, _ := mime.ParseMediaType(header.Header.Get("Content-Type"))
	if mediaType != "application/pdf" {
		s.fail(c, core.Invalid("pdfFile", "must be application/pdf"), "Only PDF files are allowed")
		return
	}

	f, err := header.Open()
	if err != nil {
		s.fail(c, &core.StorageError{Op: "open", Path: header.Filename, Err: err}, "")
		return
	}
	defer f.Close()

	result, err := s.deps.Ingester.Ingest(c.Request.Context(), header.Filename, f)
	if err != nil {
		s.fail(c, err, "")
		return
	}

	ok(c, "PDF uploaded and processed successfully", gin.H{
		"pdfId":    result.Document.ID,
		"filename": result.Document.Filename,
	})
}

func (s *Server) askPDF(c *gin.Context) {
	var req askRequest
	if !s.bindJSON(c, &req) {
		return
	}
	if strings.TrimSpace(req.PDFID) == "" || strings.TrimSpace(req.Question) == "" {
		s.fail(c, core.Invalid("pdfId", "and question are required"), "PDF ID and question are required")
		return
	}

	ctx := c.Request.Context()
	doc, err := s.deps.Documents.Lookup(ctx, req.PDFID)
	if err != nil {
		var notFound *core.DocumentNotFoundError
		if errors.As(err, &notFound) {
			s.fail(c, err, fmt.Sprintf("PDF not found for ID: %s", req.PDFID))
			return
		}
		s.fail(c, err, "")
		return
	}

	idx, err := s.deps.Indexes(ctx, doc)
	if err != nil {
		if errors.Is(err, vectorindex.ErrIndexNotFound) {
			s.fail(c, err, fmt.Sprintf("Index not found for PDF ID: %s", req.PDFID))
			return
		}
		s.fail(c, err, "")
		return
	}

	answer, err := s.deps.Answerer.Answer(ctx, idx, req.Question, search.Options{
		Provider:    req.Provider,
		Model:       req.Model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		s.fail(c, err, "")
		return
	}

	ok(c, "Question answered successfully", gin.H{
		"question": req.Question,
		"answer":   answer.Text,
		"pdfInfo": gin.H{
			"filename":   doc.Filename,
			"uploadedAt": doc.UploadedAt,
		},
	})
}

func (s *Server) listPDFs(c *gin.Context) {
	docs, err := s.deps.Documents.List(c.Request.Context())
	if err != nil {
		s.fail(c, err, "")
		return
	}

	pdfs := make([]pdfJSON, len(docs))
	for i, doc := range docs {
		pdfs[i] = pdfJSON{
			ID:         doc.ID,
			Filename:   doc.Filename,
			UploadedAt: doc.UploadedAt,
			PageCount:  doc.PageCount,
		}
	}
	ok(c, "Retrieved processed PDFs", gin.H{"pdfs": pdfs})
}
