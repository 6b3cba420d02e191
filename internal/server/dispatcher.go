package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"weathercache/internal/models"
	"weathercache/internal/processing"
	"weathercache/internal/rangecache"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// RangeCache is what the dispatcher needs from the range cache
type RangeCache interface {
	FetchRange(ctx context.Context, coord models.Coordinate, start, end time.Time) (*rangecache.Result, error)
	ReadCachedRange(ctx context.Context, coord models.Coordinate, start, end time.Time) (*rangecache.Result, error)
	DeleteRange(ctx context.Context, coord models.Coordinate, start, end time.Time) (int, error)
}

// RangeRequest is the payload shared by every range operation. Dates are
// epoch milliseconds. Fields are pointers so that a zero coordinate is
// distinguishable from a missing one.
type RangeRequest struct {
	Latitude  *float64 `json:"latitude" validate:"required"`
	Longitude *float64 `json:"longitude" validate:"required"`
	StartDate *int64   `json:"startDate" validate:"required"`
	EndDate   *int64   `json:"endDate" validate:"required"`
}

func (r RangeRequest) Coordinate() models.Coordinate {
	return models.Coordinate{Latitude: *r.Latitude, Longitude: *r.Longitude}
}

func (r RangeRequest) Range() (time.Time, time.Time) {
	return time.UnixMilli(*r.StartDate), time.UnixMilli(*r.EndDate)
}

// Message is an inbound socket frame
type Message struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Reply is an outbound socket frame
type Reply struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Failure is the payload of every *_failed reply
type Failure struct {
	Message string `json:"message"`
}

// Event names
const (
	EventPing             = "ping"
	EventPong             = "pong"
	EventForecast         = "forecast_request"
	EventForecastDone     = "forecast_request_done"
	EventForecastFailed   = "forecast_request_failed"
	EventSummary          = "forecast_summary_request"
	EventSummaryDone      = "forecast_summary_request_done"
	EventSummaryFailed    = "forecast_summary_request_failed"
	EventRemove           = "forecast_remove_request"
	EventRemoveDone       = "forecast_request_remove_done"
	EventRemoveFailed     = "forecast_remove_failed"
	EventProcessing       = "forecast_processing_data_request"
	EventProcessingDone   = "forecast_processing_data_request_done"
	EventProcessingFailed = "forecast_processing_data_request_failed"
	EventError            = "error"
)

// Dispatcher turns range requests into range cache calls
type Dispatcher struct {
	cache      RangeCache
	summarizer *processing.Summarizer
}

func NewDispatcher(cache RangeCache) *Dispatcher {
	return &Dispatcher{
		cache:      cache,
		summarizer: processing.NewSummarizer(),
	}
}

// Validate checks that every field of the request is present
func (d *Dispatcher) Validate(req RangeRequest) error {
	if err := validate.Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			msg := "is required"
			if fe.Tag() != "required" {
				msg = fmt.Sprintf("failed %s validation", fe.Tag())
			}
			return &models.ValidationError{Field: fe.Field(), Message: msg}
		}
		return &models.ValidationError{Field: "request", Message: err.Error()}
	}
	return nil
}

func (d *Dispatcher) FetchRange(ctx context.Context, req RangeRequest) (*rangecache.Result, error) {
	if err := d.Validate(req); err != nil {
		return nil, err
	}
	start, end := req.Range()
	return d.cache.FetchRange(ctx, req.Coordinate(), start, end)
}

func (d *Dispatcher) ReadCachedRange(ctx context.Context, req RangeRequest) (*rangecache.Result, error) {
	if err := d.Validate(req); err != nil {
		return nil, err
	}
	start, end := req.Range()
	return d.cache.ReadCachedRange(ctx, req.Coordinate(), start, end)
}

// DeleteRange returns the number of cached days that were removed
func (d *Dispatcher) DeleteRange(ctx context.Context, req RangeRequest) (int, error) {
	if err := d.Validate(req); err != nil {
		return 0, err
	}
	start, end := req.Range()
	return d.cache.DeleteRange(ctx, req.Coordinate(), start, end)
}

// Processed flattens the cached days of the range into normalized rows
func (d *Dispatcher) Processed(ctx context.Context, req RangeRequest) ([]models.NormalizedRecord, error) {
	res, err := d.ReadCachedRange(ctx, req)
	if err != nil {
		return nil, err
	}
	return processing.Normalize(res.Records), nil
}

// Stats summarizes every numeric field of the cached range
func (d *Dispatcher) Stats(ctx context.Context, req RangeRequest) ([]models.FieldStats, error) {
	rows, err := d.Processed(ctx, req)
	if err != nil {
		return nil, err
	}
	return d.summarizer.Summarize(rows), nil
}

// Handle runs one socket message and builds the reply frame
func (d *Dispatcher) Handle(ctx context.Context, msg Message) Reply {
	if msg.Event == EventPing {
		return Reply{Event: EventPong, Data: "Hello world!"}
	}

	var done, failed string
	switch msg.Event {
	case EventForecast:
		done, failed = EventForecastDone, EventForecastFailed
	case EventSummary:
		done, failed = EventSummaryDone, EventSummaryFailed
	case EventRemove:
		done, failed = EventRemoveDone, EventRemoveFailed
	case EventProcessing:
		done, failed = EventProcessingDone, EventProcessingFailed
	default:
		return Reply{Event: EventError, Data: Failure{Message: fmt.Sprintf("unknown event %q", msg.Event)}}
	}

	var req RangeRequest
	if len(msg.Data) == 0 {
		return failedReply(msg.Event, failed, &models.ValidationError{Field: "data", Message: "is required"})
	}
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		return failedReply(msg.Event, failed, &models.ValidationError{Field: "data", Message: err.Error()})
	}

	var (
		data interface{}
		err  error
	)
	switch msg.Event {
	case EventForecast:
		data, err = d.FetchRange(ctx, req)
	case EventSummary:
		data, err = d.ReadCachedRange(ctx, req)
	case EventRemove:
		_, err = d.DeleteRange(ctx, req)
		data = err == nil
	case EventProcessing:
		data, err = d.Processed(ctx, req)
	}
	if err != nil {
		return failedReply(msg.Event, failed, err)
	}
	return Reply{Event: done, Data: data}
}

func failedReply(event, failed string, err error) Reply {
	log.Printf("%s failed: %v", event, err)
	return Reply{Event: failed, Data: Failure{Message: err.Error()}}
}
