package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"k8s.io/klog/v2"

	"github.com/ssargent/fwumeta/pkg/codec"
	"github.com/ssargent/fwumeta/pkg/fwu"
	"github.com/ssargent/fwumeta/pkg/storage"
)

const defaultHistoryLimit = 20

// Server holds the API server state
type Server struct {
	source  MetadataSource
	config  ServerConfig
	metrics *Metrics
}

// NewServer creates a new API server
func NewServer(source MetadataSource, config ServerConfig, metrics *Metrics) *Server {
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if config.RefreshInterval <= 0 {
		config.RefreshInterval = DefaultRefreshInterval
	}
	return &Server{
		source:  source,
		config:  config,
		metrics: metrics,
	}
}

// slots maps the path names accepted by /metadata/{slot} to store slots.
var slots = map[string]string{
	"primary": storage.PrimarySlot,
	"backup":  storage.BackupSlot,
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.metrics.RecordHealthCheck(true)
	sendSuccess(w, map[string]string{"status": "healthy"})
}

func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes))
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, codec.Errorf(codec.KindMissingInput, "request body is empty")
	}
	return body, nil
}

// decodeOptions reads the optional banks, images and verify_crc query
// parameters. Without banks and images the shape is taken from the record.
func decodeOptions(q url.Values) (numBanks, numImages int, opts []codec.DecodeOption, err error) {
	if v := q.Get("verify_crc"); v != "" {
		verify, perr := strconv.ParseBool(v)
		if perr != nil {
			return 0, 0, nil, codec.Errorf(codec.KindInvalidArgument, "verify_crc: %q is not a boolean", v)
		}
		if verify {
			opts = append(opts, codec.WithChecksumVerification())
		}
	}

	banks, images := q.Get("banks"), q.Get("images")
	if banks == "" && images == "" {
		return 0, 0, opts, nil
	}
	if banks == "" || images == "" {
		return 0, 0, nil, codec.Errorf(codec.KindInvalidArgument, "banks and images must be given together")
	}
	if numBanks, err = strconv.Atoi(banks); err != nil {
		return 0, 0, nil, codec.Errorf(codec.KindInvalidArgument, "banks: %q is not a number", banks)
	}
	if numImages, err = strconv.Atoi(images); err != nil {
		return 0, 0, nil, codec.Errorf(codec.KindInvalidArgument, "images: %q is not a number", images)
	}
	return numBanks, numImages, opts, nil
}

func decodeRecord(data []byte, q url.Values) (*fwu.Record, error) {
	numBanks, numImages, opts, err := decodeOptions(q)
	if err != nil {
		return nil, err
	}
	if numBanks == 0 && numImages == 0 {
		return fwu.Decode(data, opts...)
	}
	md, err := codec.DecodeMetadata(data, numImages, numBanks, opts...)
	if err != nil {
		return nil, err
	}
	return fwu.FromMetadata(md)
}

func describe(r *fwu.Record) DecodeResponse {
	resp := DecodeResponse{Record: r, Valid: true}
	if err := r.Validate(); err != nil {
		resp.Valid = false
		resp.ValidationError = err.Error()
		resp.ValidationKind = string(codec.KindOf(err))
	}
	return resp
}

func (s *Server) handleDecode(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	body, err := s.readBody(w, r)
	if err != nil {
		s.metrics.RecordCodecOperation("decode", err, time.Since(start))
		sendCodecError(w, badRequest(err))
		return
	}

	rec, err := decodeRecord(body, r.URL.Query())
	s.metrics.RecordCodecOperation("decode", err, time.Since(start))
	if err != nil {
		sendCodecError(w, err)
		return
	}
	sendSuccess(w, describe(rec))
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	body, err := s.readBody(w, r)
	if err != nil {
		s.metrics.RecordCodecOperation("validate", err, time.Since(start))
		sendCodecError(w, badRequest(err))
		return
	}

	_, err = fwu.ValidateBytes(body)
	s.metrics.RecordCodecOperation("validate", err, time.Since(start))

	resp := ValidateResponse{Valid: err == nil}
	if err != nil {
		resp.Error = err.Error()
		resp.Kind = string(codec.KindOf(err))
	}
	sendSuccess(w, resp)
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	opts := fwu.DefaultOptions()
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&opts); err != nil && !errors.Is(err, io.EOF) {
		sendError(w, "Invalid JSON request", http.StatusBadRequest)
		return
	}

	md, err := fwu.Build(opts)
	var data []byte
	if err == nil {
		data, err = md.Reseal()
	}
	s.metrics.RecordCodecOperation("encode", err, time.Since(start))
	if err != nil {
		sendCodecError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", `attachment; filename="fwu-metadata.bin"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleGetStored(w http.ResponseWriter, r *http.Request) {
	if s.source == nil {
		sendError(w, "No metadata store configured", http.StatusServiceUnavailable)
		return
	}
	name := chi.URLParam(r, "slot")
	slot, ok := slots[name]
	if !ok {
		sendError(w, "Unknown slot "+strconv.Quote(name)+", want primary or backup", http.StatusNotFound)
		return
	}

	data, err := s.source.Get(slot)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			sendError(w, "No metadata stored in "+name+" slot", http.StatusNotFound)
			return
		}
		klog.Errorf("reading %s slot: %v", slot, err)
		sendError(w, "Failed to read metadata store", http.StatusInternalServerError)
		return
	}

	start := time.Now()
	rec, err := fwu.Decode(data)
	s.metrics.RecordCodecOperation("decode", err, time.Since(start))
	if err != nil {
		sendCodecError(w, err)
		return
	}
	sendSuccess(w, describe(rec))
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.source == nil {
		sendError(w, "No metadata store configured", http.StatusServiceUnavailable)
		return
	}
	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			sendError(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	revs, err := s.source.History(limit)
	if err != nil {
		klog.Errorf("reading history: %v", err)
		sendError(w, "Failed to read metadata history", http.StatusInternalServerError)
		return
	}

	views := make([]RevisionView, 0, len(revs))
	for _, rev := range revs {
		views = append(views, RevisionView{
			ID:   rev.ID.String(),
			Slot: rev.Slot,
			Time: rev.Time(),
			Size: len(rev.Data),
		})
	}
	sendSuccess(w, views)
}

// badRequest gives body read failures without a kind an InvalidArgument
// kind so they map to 400.
func badRequest(err error) error {
	if codec.KindOf(err) != "" {
		return err
	}
	return codec.Wrap(codec.KindInvalidArgument, err, "reading request body")
}

// refreshMetrics publishes the state of the stored copies.
func (s *Server) refreshMetrics() {
	if s.source == nil {
		return
	}
	for name, slot := range slots {
		data, err := s.source.Get(slot)
		if err != nil {
			s.metrics.SetStoredValid(name, false)
			continue
		}
		rec, err := fwu.ValidateBytes(data)
		s.metrics.SetStoredValid(name, err == nil)
		if slot == storage.PrimarySlot && rec != nil {
			s.metrics.UpdateStoredRecord(rec)
		}
	}
	if n, err := s.source.RevisionCount(); err == nil {
		s.metrics.SetRevisionCount(n)
	}
}

// startMetricsUpdater periodically refreshes the stored record metrics
func (s *Server) startMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(s.config.RefreshInterval)
	defer ticker.Stop()

	s.refreshMetrics()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.refreshMetrics()
		}
	}
}
