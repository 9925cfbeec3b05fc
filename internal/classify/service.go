package classify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/emariqueo1/clasificador-salcobrand/internal/domain"
)

// ErrProductRequired is returned when the product name is blank.
var ErrProductRequired = errors.New("Producto requerido")

type Stage string

const (
	StageValidation     Stage = "validation"
	StageClassification Stage = "classification"
	StagePersistence    Stage = "persistence"
)

// Error records which step of a classification request failed. The
// underlying error is kept intact for errors.Is/As and for the message.
type Error struct {
	Stage Stage
	Err   error
}

func (e *Error) Error() string { return e.Err.Error() }

func (e *Error) Unwrap() error { return e.Err }

// StageOf returns the failing stage of err, or "" if err did not come from
// a Service.
func StageOf(err error) Stage {
	var stageErr *Error
	if errors.As(err, &stageErr) {
		return stageErr.Stage
	}
	return ""
}

type Classifier interface {
	Classify(ctx context.Context, product, manufacturer string) (domain.Result, error)
}

type Inserter interface {
	Insert(ctx context.Context, rec domain.NewRecord) (int64, error)
}

// Notifier is told about every persisted classification. Failures are
// logged and never fail the request.
type Notifier interface {
	NotifyClassification(ctx context.Context, rec domain.ClassificationRecord) error
}

type Request struct {
	Product      string `json:"product"`
	Manufacturer string `json:"manufacturer"`
}

// Response is the joined input and classification. The timestamp is left to
// the listing endpoint.
type Response struct {
	ID           int64  `json:"id"`
	Product      string `json:"product"`
	Manufacturer string `json:"manufacturer"`
	domain.Result
}

type Service struct {
	classifier Classifier
	store      Inserter
	notifier   Notifier
	submitter  string
}

// NewService wires the classify pipeline. notifier may be nil.
func NewService(classifier Classifier, store Inserter, notifier Notifier) *Service {
	return &Service{
		classifier: classifier,
		store:      store,
		notifier:   notifier,
		submitter:  domain.DefaultSubmitter,
	}
}

// Classify validates req, asks the classifier, and persists the result.
// A result whose insert fails is not kept anywhere.
func (s *Service) Classify(ctx context.Context, req Request) (Response, error) {
	product := strings.TrimSpace(req.Product)
	if product == "" {
		return Response{}, &Error{Stage: StageValidation, Err: ErrProductRequired}
	}
	manufacturer := domain.NormalizeManufacturer(req.Manufacturer)

	start := time.Now()
	result, err := s.classifier.Classify(ctx, product, manufacturer)
	if err != nil {
		log.WithFields(log.Fields{"product": product, "stage": StageClassification}).Errorf("classify failed: %v", err)
		return Response{}, &Error{Stage: StageClassification, Err: err}
	}

	rec := domain.NewRecord{
		Product:      product,
		Manufacturer: manufacturer,
		SubmittedBy:  s.submitter,
		Result:       result,
	}
	id, err := s.store.Insert(ctx, rec)
	if err != nil {
		log.WithFields(log.Fields{"product": product, "stage": StagePersistence, "category": result.CategoryCode}).
			Errorf("classification lost, insert failed: %v", err)
		return Response{}, &Error{Stage: StagePersistence, Err: fmt.Errorf("saving classification: %w", err)}
	}

	log.WithFields(log.Fields{
		"id":       id,
		"product":  product,
		"category": result.CategoryCode,
		"risk":     result.ShrinkageRisk,
		"duration": time.Since(start).Round(time.Millisecond),
	}).Info("product classified")

	// ClassifiedAt stays zero; the store owns the timestamp.
	if s.notifier != nil {
		stored := domain.ClassificationRecord{
			ID:           id,
			Product:      product,
			Manufacturer: manufacturer,
			Result:       result,
			SubmittedBy:  s.submitter,
		}
		if err := s.notifier.NotifyClassification(ctx, stored); err != nil {
			log.Printf("classification notify error id=%d: %v", id, err)
		}
	}

	return Response{
		ID:           id,
		Product:      product,
		Manufacturer: manufacturer,
		Result:       result,
	}, nil
}
