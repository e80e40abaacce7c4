package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/PriyamJChakrabarty/Smart-Telecom-Helpline-AI-Agent/internal/models"
	"github.com/PriyamJChakrabarty/Smart-Telecom-Helpline-AI-Agent/internal/retriever"
	"github.com/PriyamJChakrabarty/Smart-Telecom-Helpline-AI-Agent/internal/storage"
	"github.com/PriyamJChakrabarty/Smart-Telecom-Helpline-AI-Agent/internal/vector"
)

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var query models.AskQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := query.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Debug("ask request", zap.String("query", query.Query), zap.Float64p("threshold", query.Threshold))

	match, ok, err := s.Index().BestAnswer(r.Context(), query.Query, *query.Threshold)
	if err != nil {
		s.logger.Error("ask failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := models.AskResponse{Matched: ok, Query: query.Query}
	if ok {
		resp.Answer = match.FAQ.Answer
		resp.Question = match.FAQ.Question
		resp.Category = match.FAQ.Category
		resp.Score = match.Score
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var query models.SearchQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := query.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Debug("search request", zap.String("query", query.Query), zap.Int("top_k", query.TopK))

	start := time.Now()
	matches, err := s.Index().Search(r.Context(), query.Query, query.TopK, *query.Threshold)
	if err != nil {
		if errors.Is(err, vector.ErrEmptyStore) {
			s.respondJSON(w, http.StatusOK, models.SearchResponse{
				Results: []models.Match{}, Query: query.Query,
			})
			return
		}
		s.logger.Error("search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if matches == nil {
		matches = []models.Match{}
	}
	s.respondJSON(w, http.StatusOK, models.SearchResponse{
		Results:   matches,
		Total:     len(matches),
		QueryTime: time.Since(start).Milliseconds(),
		Query:     query.Query,
	})
}

type faqInput struct {
	Question   string   `json:"question"`
	Variations []string `json:"variations,omitempty"`
	Answer     string   `json:"answer"`
	Category   string   `json:"category"`
}

func (s *Server) handleCreateFAQ(w http.ResponseWriter, r *http.Request) {
	var input faqInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	faq := models.FAQ{
		Question:   input.Question,
		Variations: input.Variations,
		Answer:     input.Answer,
		Category:   input.Category,
	}
	if err := faq.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	entry := &models.FAQEntry{
		Key:        uuid.New().String(),
		Question:   input.Question,
		Variations: input.Variations,
		Answer:     input.Answer,
		Category:   input.Category,
	}
	if err := s.storage.CreateFAQ(r.Context(), entry); err != nil {
		s.logger.Error("create faq failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.logger.Debug("faq created", zap.String("key", entry.Key))
	s.respondJSON(w, http.StatusCreated, entry)
}

func (s *Server) handleGetFAQ(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	entry, err := s.storage.GetFAQ(r.Context(), key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "faq not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, entry)
}

func (s *Server) handleListFAQs(w http.ResponseWriter, r *http.Request) {
	offset := queryInt(r, "offset", 0)
	limit := queryInt(r, "limit", 50)
	entries, err := s.storage.ListFAQs(r.Context(), offset, limit)
	if err != nil {
		s.logger.Error("list faqs failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if entries == nil {
		entries = []*models.FAQEntry{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"faqs":   entries,
		"offset": offset,
		"limit":  limit,
	})
}

func (s *Server) handleUpdateFAQ(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	var input faqInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	faq := models.FAQ{
		Question:   input.Question,
		Variations: input.Variations,
		Answer:     input.Answer,
		Category:   input.Category,
	}
	if err := faq.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	entry := &models.FAQEntry{
		Key:        key,
		Question:   input.Question,
		Variations: input.Variations,
		Answer:     input.Answer,
		Category:   input.Category,
	}
	if err := s.storage.UpdateFAQ(r.Context(), entry); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "faq not found")
			return
		}
		s.logger.Error("update faq failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	updated, err := s.storage.GetFAQ(r.Context(), key)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteFAQ(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	s.logger.Debug("delete faq request", zap.String("key", key))
	if err := s.storage.DeleteFAQ(r.Context(), key); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "faq not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// handleRebuild re-embeds the stored corpus into a fresh index and swaps it
// in. Queries keep hitting the old index until the swap completes.
func (s *Server) handleRebuild(w http.ResponseWriter, r *http.Request) {
	err := s.Rebuild(r.Context(), storageSource{s.storage})
	if err != nil {
		if errors.Is(err, retriever.ErrEmptyCorpus) {
			s.respondError(w, http.StatusConflict, "no faqs stored, nothing to index")
			return
		}
		s.logger.Error("rebuild failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "rebuilt",
		"faqs":   s.Index().Size(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	count, err := s.storage.CountFAQs(r.Context())
	if err != nil {
		s.logger.Error("status: count faqs failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	ix := s.Index()
	resp := map[string]interface{}{
		"stored_faqs":   count,
		"indexed_faqs":  ix.Size(),
		"dimension":     ix.Dimension(),
		"model":         ix.ModelID(),
		"default_top_k": s.cfg.Retrieval.TopK,
		"threshold":     s.cfg.Retrieval.ThresholdOrDefault(),
	}
	diskBytes, err := storage.DiskUsageBytes(
		s.cfg.Storage.DatabasePath,
		s.cfg.Storage.VectorIndexPath,
		s.cfg.Storage.MetadataPath,
	)
	if err == nil {
		resp["disk_usage_bytes"] = diskBytes
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// storageSource adapts the FAQ database to the corpus Source interface.
type storageSource struct {
	store storage.Storage
}

func (s storageSource) Load(ctx context.Context) ([]models.FAQ, error) {
	return s.store.Corpus(ctx)
}

func queryInt(r *http.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
