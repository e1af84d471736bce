package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/CTAG07/wordchain/pkg/markov"
	"github.com/CTAG07/wordchain/pkg/registry"
)

// maxTrainBytes limits the body of a single training request.
const maxTrainBytes = 10 << 20

// ChainAPI holds the dependencies for the model API handlers.
type ChainAPI struct {
	app    *app
	logger *slog.Logger
}

// NewChainAPI creates a new instance of the ChainAPI.
func NewChainAPI(a *app, logger *slog.Logger) *ChainAPI {
	return &ChainAPI{app: a, logger: logger}
}

// RegisterRoutes sets up the routing for all /api/models and /api/import
// endpoints.
func (c *ChainAPI) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/models", c.handleListAndCreateModels)
	mux.HandleFunc("/api/models/", c.handleModelByName)
	mux.HandleFunc("/api/import", c.handleImport)
}

type CreateModelRequest struct {
	Name        string `json:"name"`
	SeedExample *bool  `json:"seed_example"`
}

type GenerateRequest struct {
	Seed    string `json:"seed"`
	Length  int    `json:"length"`
	GapFill *bool  `json:"gap_fill"`
}

type GenerateResponse struct {
	Text string `json:"text"`
}

// handleListAndCreateModels handles GET for listing and POST for creating models.
func (c *ChainAPI) handleListAndCreateModels(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		names, err := c.app.registry.Names(r.Context())
		if err != nil {
			c.logger.Error("Failed to list models", "error", err)
			respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to retrieve models: %v", err))
			return
		}
		if names == nil {
			names = []string{}
		}
		respondWithJSON(w, http.StatusOK, names)

	case http.MethodPost:
		var req CreateModelRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid JSON request body")
			return
		}
		seedExample := c.app.cm.Get().SeedExample
		if req.SeedExample != nil {
			seedExample = *req.SeedExample
		}
		if err := c.app.registry.Create(r.Context(), req.Name, seedExample); err != nil {
			c.logger.Error("Failed to create model", "name", req.Name, "error", err)
			respondWithError(w, statusForError(err), fmt.Sprintf("Failed to create model: %v", err))
			return
		}
		respondWithJSON(w, http.StatusCreated, map[string]string{"name": req.Name})

	default:
		methodNotAllowed(w, "GET, POST")
	}
}

// handleModelByName routes actions for a specific model, e.g., train, generate, stream, export, delete.
func (c *ChainAPI) handleModelByName(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/models/")
	parts := strings.Split(path, "/")
	modelName := parts[0]

	if modelName == "" {
		respondWithError(w, http.StatusBadRequest, "Model name not specified")
		return
	}

	if len(parts) == 1 { // Path is just /api/models/{name}
		if r.Method != http.MethodDelete {
			methodNotAllowed(w, "DELETE")
			return
		}
		if err := c.app.registry.Remove(r.Context(), modelName); err != nil {
			c.logger.Error("Failed to remove model", "name", modelName, "error", err)
			respondWithError(w, statusForError(err), fmt.Sprintf("Failed to remove model: %v", err))
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	switch action := parts[1]; action {
	case "train":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, "POST")
			return
		}
		c.handleTrain(w, r, modelName)
	case "generate":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, "POST")
			return
		}
		c.handleGenerate(w, r, modelName)
	case "stream":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, "POST")
			return
		}
		c.handleStream(w, r, modelName)
	case "next":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, "GET")
			return
		}
		c.handleNext(w, r, modelName)
	case "stats":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, "GET")
			return
		}
		stats, err := c.app.registry.Stats(r.Context(), modelName)
		if err != nil {
			respondWithError(w, statusForError(err), fmt.Sprintf("Failed to get stats: %v", err))
			return
		}
		respondWithJSON(w, http.StatusOK, stats)
	case "export":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, "GET")
			return
		}
		c.handleExport(w, r, modelName)
	default:
		respondWithError(w, http.StatusNotFound, "Action not found")
	}
}

func (c *ChainAPI) handleTrain(w http.ResponseWriter, r *http.Request, modelName string) {
	mode, err := registry.ParseTrainMode(r.URL.Query().Get("mode"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxTrainBytes))
	if err != nil {
		respondWithError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("Failed to read training data: %v", err))
		return
	}

	if err = c.app.registry.Train(r.Context(), modelName, mode, string(body)); err != nil {
		c.logger.Error("Failed to train model", "name", modelName, "error", err)
		respondWithError(w, statusForError(err), fmt.Sprintf("Training failed: %v", err))
		return
	}
	stats, err := c.app.registry.Stats(r.Context(), modelName)
	if err != nil {
		respondWithError(w, statusForError(err), fmt.Sprintf("Failed to get stats: %v", err))
		return
	}
	respondWithJSON(w, http.StatusOK, stats)
}

// decodeGenerateRequest reads an optional GenerateRequest body and returns the
// seed and generation options it describes.
func (c *ChainAPI) decodeGenerateRequest(r *http.Request) ([]string, []markov.GenerateOption, error) {
	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		return nil, nil, err
	}
	gapFill := c.app.cm.Get().Generation.GapFill
	if req.GapFill != nil {
		gapFill = *req.GapFill
	}
	var seed []string
	if req.Seed != "" {
		seed = []string{req.Seed}
	}
	return seed, c.app.generateOptions(req.Length, gapFill), nil
}

func (c *ChainAPI) handleGenerate(w http.ResponseWriter, r *http.Request, modelName string) {
	seed, opts, err := c.decodeGenerateRequest(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid JSON request body")
		return
	}

	text, err := c.app.registry.Generate(r.Context(), modelName, seed, opts...)
	if err != nil {
		c.logger.Warn("Failed to generate", "name", modelName, "error", err)
		respondWithError(w, statusForError(err), fmt.Sprintf("Generation failed: %v", err))
		return
	}
	respondWithJSON(w, http.StatusOK, GenerateResponse{Text: text})
}

// streamErrorTrailer carries the error of a stream that failed after its
// first token.
const streamErrorTrailer = "X-Stream-Error"

// handleStream writes generated tokens as plain text, flushing after each one.
// Errors before the first token are reported as JSON; later errors end the
// response early and are set in the X-Stream-Error trailer.
func (c *ChainAPI) handleStream(w http.ResponseWriter, r *http.Request, modelName string) {
	seed, opts, err := c.decodeGenerateRequest(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid JSON request body")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		c.logger.Warn("ResponseWriter does not support flushing, tokens will be buffered.")
	}

	written := 0
	err = c.app.registry.GenerateStream(r.Context(), modelName, seed, func(token markov.Token) error {
		if written == 0 {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("Trailer", streamErrorTrailer)
			w.WriteHeader(http.StatusOK)
		} else if _, err := io.WriteString(w, " "); err != nil {
			return err
		}
		written++
		if _, err := io.WriteString(w, token.Text); err != nil {
			return err
		}
		if ok {
			flusher.Flush()
		}
		return nil
	}, opts...)

	if err != nil {
		if written == 0 {
			c.logger.Warn("Failed to generate", "name", modelName, "error", err)
			respondWithError(w, statusForError(err), fmt.Sprintf("Generation failed: %v", err))
			return
		}
		c.logger.Warn("Stream ended early", "name", modelName, "tokens_written", written, "error", err)
		w.Header().Set(streamErrorTrailer, err.Error())
	}
}

func (c *ChainAPI) handleNext(w http.ResponseWriter, r *http.Request, modelName string) {
	query := r.URL.Query()
	improvise := false
	if raw := query.Get("improvise"); raw != "" {
		var err error
		if improvise, err = strconv.ParseBool(raw); err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid value for improvise")
			return
		}
	}

	candidates, err := c.app.registry.Next(r.Context(), modelName, improvise, query["context"]...)
	if err != nil {
		respondWithError(w, statusForError(err), fmt.Sprintf("Prediction failed: %v", err))
		return
	}
	if candidates == nil {
		candidates = []markov.Candidate{}
	}
	respondWithJSON(w, http.StatusOK, candidates)
}

func (c *ChainAPI) handleExport(w http.ResponseWriter, r *http.Request, modelName string) {
	// Export into memory first so a missing model still gets a JSON error.
	var buf strings.Builder
	if err := c.app.registry.Export(r.Context(), modelName, &buf); err != nil {
		c.logger.Error("Failed to export model", "name", modelName, "error", err)
		respondWithError(w, statusForError(err), fmt.Sprintf("Export failed: %v", err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.json\"", modelName))
	_, _ = io.WriteString(w, buf.String())
}

// handleImport imports a model from an uploaded JSON file.
func (c *ChainAPI) handleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}
	name := r.URL.Query().Get("name")
	if name == "" {
		respondWithError(w, http.StatusBadRequest, "Query parameter 'name' is required")
		return
	}

	if err := c.app.registry.Import(r.Context(), name, r.Body); err != nil {
		c.logger.Error("Failed to import model", "name", name, "error", err)
		code := statusForError(err)
		if code == http.StatusInternalServerError {
			code = http.StatusBadRequest
		}
		respondWithError(w, code, fmt.Sprintf("Import failed: %v", err))
		return
	}
	respondWithJSON(w, http.StatusCreated, map[string]string{"name": name})
}
