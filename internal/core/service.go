// Package core exposes the model service: stored genome models, SIF import,
// exports into the artifact store and rule validation, with logging, audit,
// metrics and tracing around every operation.
package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"

	"genomecore/internal/blob"
	"genomecore/internal/infra/persistence/memory"
	"genomecore/internal/sbml"
	"genomecore/internal/sif"
	"genomecore/pkg/domain"
	"genomecore/pkg/model"
)

// RootKey is the key of every model's root genome.
const RootKey = "bioTapestryEssential"

var modelNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// Service manages stored genome models.
type Service struct {
	store   domain.ModelStore
	blobs   blob.Store
	engine  *model.RulesEngine
	logger  Logger
	clock   Clock
	audit   AuditRecorder
	metrics MetricsRecorder
	tracer  Tracer
}

// NewService constructs a service over a model store and an export artifact
// store.
func NewService(store domain.ModelStore, blobs blob.Store, opts ...Option) *Service {
	s := &Service{
		store:   store,
		blobs:   blobs,
		engine:  model.NewDefaultRulesEngine(),
		logger:  noopLogger{},
		clock:   ClockFunc(nowUTC),
		audit:   noopAuditRecorder{},
		metrics: noopMetricsRecorder{},
		tracer:  noopTracer{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// NewInMemoryService creates a service with in-memory model and artifact
// stores.
func NewInMemoryService(opts ...Option) *Service {
	return NewService(memory.NewStore(), blob.NewMemory(), opts...)
}

// Store returns the underlying model store.
func (s *Service) Store() domain.ModelStore { return s.store }

// Blobs returns the export artifact store.
func (s *Service) Blobs() blob.Store { return s.blobs }

// ValidateModelName rejects names unusable as store keys and artifact path
// segments.
func ValidateModelName(name string) error {
	if !modelNamePattern.MatchString(name) {
		return domain.Contract("ValidateModelName", domain.ErrInvalidArgument, "invalid model name %q", name)
	}
	return nil
}

// CreateModel stores a new empty model whose root genome carries
// displayName. It fails when the name is taken.
func (s *Service) CreateModel(ctx context.Context, name, displayName string) (*model.Document, domain.ModelInfo, error) {
	var (
		doc  *model.Document
		info domain.ModelInfo
	)
	err := s.run(ctx, "create_model", domain.ActionCreate, name, func(ctx context.Context) error {
		if err := ValidateModelName(name); err != nil {
			return err
		}
		if _, _, err := s.store.Load(ctx, name); err == nil {
			return domain.Contract("CreateModel", domain.ErrInvalidArgument, "model %s already exists", name)
		} else if !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		if displayName == "" {
			displayName = name
		}
		doc = model.New(RootKey, displayName)
		var err error
		info, err = s.persist(ctx, name, doc)
		return err
	})
	return doc, info, err
}

// OpenModel loads and parses a stored model.
func (s *Service) OpenModel(ctx context.Context, name string) (*model.Document, domain.ModelInfo, error) {
	var (
		doc  *model.Document
		info domain.ModelInfo
	)
	err := s.run(ctx, "open_model", "", name, func(ctx context.Context) error {
		var err error
		doc, info, err = s.load(ctx, name)
		return err
	})
	return doc, info, err
}

// SaveModel evaluates the rules against doc and stores it under name unless
// a blocking violation is reported. The returned result carries every
// violation, blocking or not.
func (s *Service) SaveModel(ctx context.Context, name string, doc *model.Document) (domain.ModelInfo, domain.Result, error) {
	var (
		info domain.ModelInfo
		res  domain.Result
	)
	err := s.run(ctx, "save_model", domain.ActionUpdate, name, func(ctx context.Context) error {
		if err := ValidateModelName(name); err != nil {
			return err
		}
		if doc == nil {
			return domain.Contract("SaveModel", domain.ErrInvalidArgument, "nil document")
		}
		var err error
		if res, err = s.engine.Evaluate(ctx, doc); err != nil {
			return err
		}
		if res.HasBlocking() {
			return domain.RuleViolationError{Result: res}
		}
		info, err = s.persist(ctx, name, doc)
		return err
	})
	return info, res, err
}

// ListModels returns every stored model in name order.
func (s *Service) ListModels(ctx context.Context) ([]domain.ModelInfo, error) {
	var out []domain.ModelInfo
	err := s.run(ctx, "list_models", "", "", func(ctx context.Context) error {
		var err error
		out, err = s.store.List(ctx)
		return err
	})
	return out, err
}

// DeleteModel removes a stored model and every export artifact it produced.
// It reports whether the model existed.
func (s *Service) DeleteModel(ctx context.Context, name string) (bool, error) {
	var existed bool
	err := s.run(ctx, "delete_model", domain.ActionDelete, name, func(ctx context.Context) error {
		var err error
		if existed, err = s.store.Delete(ctx, name); err != nil {
			return err
		}
		if ValidateModelName(name) != nil {
			return nil
		}
		n, err := blob.DeleteExports(ctx, s.blobs, name)
		if err != nil {
			return fmt.Errorf("delete exports: %w", err)
		}
		if n > 0 {
			s.logger.Debug("deleted export artifacts", "model", name, "count", n)
		}
		return nil
	})
	return existed, err
}

// ImportSIF merges the interactions in r into the root genome of the named
// model, creating the model when absent, and saves the result. A cancelled
// ctx or an exit request from mon leaves the stored model unchanged.
func (s *Service) ImportSIF(ctx context.Context, name string, r io.Reader, mon sif.Monitor) (sif.Stats, domain.ModelInfo, error) {
	var (
		stats sif.Stats
		info  domain.ModelInfo
	)
	err := s.run(ctx, "import_sif", domain.ActionUpdate, name, func(ctx context.Context) error {
		if err := ValidateModelName(name); err != nil {
			return err
		}
		doc, _, err := s.load(ctx, name)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			doc = model.New(RootKey, name)
		case err != nil:
			return err
		}
		if stats, err = sif.Import(ctx, r, doc.Root(), mon); err != nil {
			return err
		}
		res, err := s.engine.Evaluate(ctx, doc)
		if err != nil {
			return err
		}
		if res.HasBlocking() {
			return domain.RuleViolationError{Result: res}
		}
		info, err = s.persist(ctx, name, doc)
		return err
	})
	return stats, info, err
}

// Export renders the stored model in format (xml, sif or sbml) and writes it
// to the artifact store under the model's current revision. Exporting the
// same revision and format twice returns the existing artifact.
func (s *Service) Export(ctx context.Context, name, format string) (blob.Info, error) {
	var out blob.Info
	err := s.run(WithExportFormat(ctx, format), "export_model", domain.ActionCreate, name, func(ctx context.Context) error {
		if blob.ContentType(format) == "" {
			return domain.Contract("Export", domain.ErrInvalidArgument, "unknown export format %q", format)
		}
		doc, info, err := s.load(ctx, name)
		if err != nil {
			return err
		}
		key := blob.ExportKey(name, info.Revision, format)
		if existing, err := s.blobs.Head(ctx, key); err == nil {
			out = existing
			return nil
		} else if !errors.Is(err, blob.ErrNotFound) {
			return err
		}
		var buf bytes.Buffer
		if err := Render(&buf, doc, format); err != nil {
			return err
		}
		out, err = blob.PutExport(ctx, s.blobs, blob.Artifact{Model: name, Revision: info.Revision, Format: format, Data: buf.Bytes()})
		return err
	})
	return out, err
}

// Render writes doc in one of the export formats.
func Render(w io.Writer, doc *model.Document, format string) error {
	switch format {
	case blob.FormatXML:
		return doc.Write(w)
	case blob.FormatSIF:
		return sif.Export(w, doc.Root())
	case blob.FormatSBML:
		return sbml.Write(w, doc.Root())
	default:
		return domain.Contract("Render", domain.ErrInvalidArgument, "unknown export format %q", format)
	}
}

// Report is the outcome of validating one model.
type Report struct {
	Model    string
	Revision string
	// Fixups lists items whose activity was repaired while reading a legacy
	// document.
	Fixups []string
	Result domain.Result
}

// Valid reports whether the model has no blocking violations.
func (r Report) Valid() bool { return !r.Result.HasBlocking() }

// Validate runs the rules against a stored model.
func (s *Service) Validate(ctx context.Context, name string) (Report, error) {
	var report Report
	err := s.run(ctx, "validate_model", "", name, func(ctx context.Context) error {
		doc, info, err := s.load(ctx, name)
		if err != nil {
			return err
		}
		report, err = s.validate(ctx, doc)
		report.Model, report.Revision = name, info.Revision
		return err
	})
	return report, err
}

// ValidateDocument parses markup from r and runs the rules against it
// without storing anything.
func (s *Service) ValidateDocument(ctx context.Context, r io.Reader) (Report, error) {
	var report Report
	err := s.run(ctx, "validate_document", "", "", func(ctx context.Context) error {
		doc, err := model.Read(r)
		if err != nil {
			return err
		}
		report, err = s.validate(ctx, doc)
		return err
	})
	return report, err
}

func (s *Service) validate(ctx context.Context, doc *model.Document) (Report, error) {
	res, err := s.engine.Evaluate(ctx, doc)
	if err != nil {
		return Report{}, err
	}
	return Report{Fixups: doc.Fixups(), Result: res}, nil
}

func (s *Service) load(ctx context.Context, name string) (*model.Document, domain.ModelInfo, error) {
	payload, info, err := s.store.Load(ctx, name)
	if err != nil {
		return nil, domain.ModelInfo{}, err
	}
	doc, err := model.Read(bytes.NewReader(payload))
	if err != nil {
		return nil, domain.ModelInfo{}, fmt.Errorf("decode model %s: %w", name, err)
	}
	if fixed := doc.Fixups(); len(fixed) > 0 {
		s.logger.Warn("repaired legacy instance activities", "model", name, "items", fixed)
	}
	return doc, info, nil
}

func (s *Service) persist(ctx context.Context, name string, doc *model.Document) (domain.ModelInfo, error) {
	var buf bytes.Buffer
	if err := doc.Write(&buf); err != nil {
		return domain.ModelInfo{}, fmt.Errorf("encode model %s: %w", name, err)
	}
	return s.store.Save(ctx, name, buf.Bytes())
}

// run wraps an operation with tracing, logging, metrics and audit.
func (s *Service) run(ctx context.Context, op string, action domain.Action, name string, fn func(context.Context) error) error {
	if name != "" {
		ctx = WithModel(ctx, name)
	}
	ctx, span := s.tracer.Start(ctx, op)
	started := s.clock.Now()
	s.logger.Debug("operation started", "operation", op, "model", name)

	err := ctx.Err()
	if err == nil {
		err = fn(ctx)
	}

	duration := s.clock.Now().Sub(started)
	span.End(err)
	s.metrics.Observe(ctx, op, err == nil, duration)
	entry := AuditEntry{
		Operation: op,
		Entity:    domain.EntityModel,
		Action:    action,
		EntityID:  name,
		Status:    AuditStatusSuccess,
		Duration:  duration,
		Timestamp: started,
	}
	if err != nil {
		entry.Status = AuditStatusError
		entry.Error = err.Error()
		if errors.Is(err, domain.ErrExitRequested) {
			s.logger.Info("operation cancelled", "operation", op, "model", name)
		} else {
			s.logger.Error("operation failed", "operation", op, "model", name, "error", err)
		}
	} else {
		s.logger.Info("operation completed", "operation", op, "model", name, "duration", duration)
	}
	s.audit.Record(ctx, entry)
	return err
}
