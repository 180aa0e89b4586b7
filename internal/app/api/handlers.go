package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"app/internal/app/transcriber"
	"app/pkg/whisper"
)

type errResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeErr(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, whisper.ErrAudioNotFound), errors.Is(err, whisper.ErrFileTooLarge):
		status = http.StatusBadRequest
	case errors.Is(err, whisper.ErrRetriesExhausted):
		status = http.StatusBadGateway
	}

	writeJSON(w, status, &errResponse{Error: err.Error()})
}

func (api *API) ping(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("pong"))
}

type transcribeRequest struct {
	AudioPath string `json:"audio_path"`
	Language  string `json:"language,omitempty"`
	Prompt    string `json:"prompt,omitempty"`
}

type segmentResponse struct {
	ID    int     `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

type transcribeResponse struct {
	Text         string            `json:"text"`
	Language     string            `json:"language"`
	Duration     float64           `json:"duration"`
	Cost         float64           `json:"cost"`
	Segments     []segmentResponse `json:"segments"`
	OutputPath   string            `json:"output_path"`
	SegmentsPath string            `json:"segments_path,omitempty"`
}

func (api *API) transcribe(w http.ResponseWriter, r *http.Request) {
	var req transcribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, &errResponse{Error: "failed to decode request: " + err.Error()})

		return
	}

	if req.AudioPath == "" {
		writeJSON(w, http.StatusBadRequest, &errResponse{Error: "audio_path is required"})

		return
	}

	ctx := r.Context()
	if api.cfg.Timeout > 0 {
		var cancel func()
		ctx, cancel = context.WithTimeout(ctx, api.cfg.Timeout)
		defer cancel()
	}

	result, err := api.service.Transcribe(ctx, &transcriber.Request{
		AudioPath: req.AudioPath,
		Language:  req.Language,
		Prompt:    req.Prompt,
	})
	if err != nil {
		writeErr(w, err)

		return
	}

	segments := make([]segmentResponse, 0, len(result.Segments))
	for _, seg := range result.Segments {
		segments = append(segments, segmentResponse{
			ID:    seg.ID,
			Start: seg.Start.Seconds(),
			End:   seg.End.Seconds(),
			Text:  seg.Text,
		})
	}

	writeJSON(w, http.StatusOK, &transcribeResponse{
		Text:         result.Text,
		Language:     result.Language,
		Duration:     result.Duration.Seconds(),
		Cost:         result.Cost,
		Segments:     segments,
		OutputPath:   result.OutputPath,
		SegmentsPath: result.SegmentsPath,
	})
}

type estimateResponse struct {
	Duration float64 `json:"duration"`
	Cost     float64 `json:"cost"`
}

func (api *API) estimate(w http.ResponseWriter, r *http.Request) {
	audioPath := r.URL.Query().Get("path")
	if audioPath == "" {
		writeJSON(w, http.StatusBadRequest, &errResponse{Error: "path query param is required"})

		return
	}

	estimate, err := api.service.Estimate(r.Context(), audioPath)
	if err != nil {
		writeErr(w, err)

		return
	}

	writeJSON(w, http.StatusOK, &estimateResponse{
		Duration: estimate.Duration.Seconds(),
		Cost:     estimate.Cost,
	})
}

func (api *API) history(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		var err error
		limit, err = strconv.Atoi(limitStr)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, &errResponse{Error: "limit is not an int"})

			return
		}
	}

	records, err := api.service.History(r.Context(), limit)
	if err != nil {
		writeErr(w, err)

		return
	}

	if records == nil {
		records = []transcriber.Record{}
	}

	writeJSON(w, http.StatusOK, records)
}
