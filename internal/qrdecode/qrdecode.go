// Package qrdecode reads a QR code out of an uploaded photo by trying an
// ordered list of decoder strategies until one returns text.
package qrdecode

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"strings"
	"time"
)

var (
	ErrNoCode      = errors.New("no qr code found")
	ErrUnreadable  = errors.New("qr code found but unreadable")
	ErrUnsupported = errors.New("unsupported image format")
	ErrOversized   = errors.New("image too large")
)

// Input is one prepared image. Data and MIME describe the bytes a remote
// strategy should upload; Image is the decoded pixels.
type Input struct {
	Image image.Image
	Data  []byte
	MIME  string
}

type Strategy interface {
	Name() string
	// Decode returns the code's text. It should return ErrNoCode or
	// ErrUnreadable (possibly wrapped) when the image holds no usable code.
	Decode(ctx context.Context, in *Input) (string, error)
}

// Orders maps a platform to its strategy sequence. PlatformDefault must be
// present; other platforms fall back to it.
type Orders map[Platform][]Strategy

type Options struct {
	ResizeThreshold int64
	MaxDimension    int
	MaxUploadBytes  int64
	MaxPixels       int
	AttemptTimeout  time.Duration
}

func DefaultOptions() Options {
	return Options{
		ResizeThreshold: 1 << 20,
		MaxDimension:    1200,
		MaxUploadBytes:  20 << 20,
		MaxPixels:       60_000_000,
		AttemptTimeout:  10 * time.Second,
	}
}

type Result struct {
	Text     string
	Strategy string
	Resized  bool
	Attempts int
}

type Decoder struct {
	orders Orders
	opts   Options
	logger *slog.Logger
}

func New(orders Orders, opts Options, logger *slog.Logger) (*Decoder, error) {
	if len(orders[PlatformDefault]) == 0 {
		return nil, fmt.Errorf("qrdecode: no default strategy order")
	}
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultOptions()
	if opts.ResizeThreshold <= 0 {
		opts.ResizeThreshold = def.ResizeThreshold
	}
	if opts.MaxDimension <= 0 {
		opts.MaxDimension = def.MaxDimension
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = def.MaxUploadBytes
	}
	if opts.MaxPixels <= 0 {
		opts.MaxPixels = def.MaxPixels
	}
	if opts.AttemptTimeout <= 0 {
		opts.AttemptTimeout = def.AttemptTimeout
	}
	return &Decoder{orders: orders, opts: opts, logger: logger}, nil
}

func (d *Decoder) MaxUploadBytes() int64 {
	return d.opts.MaxUploadBytes
}

// Order returns the strategy names tried for platform, for diagnostics.
func (d *Decoder) Order(platform Platform) []string {
	var names []string
	for _, s := range d.order(platform) {
		names = append(names, s.Name())
	}
	return names
}

func (d *Decoder) order(platform Platform) []Strategy {
	if o, ok := d.orders[platform]; ok && len(o) > 0 {
		return o
	}
	return d.orders[PlatformDefault]
}

// Decode runs the strategies for platform in order and stops at the first
// non-empty result. Failures come back as *DecodeError.
func (d *Decoder) Decode(ctx context.Context, data []byte, platform Platform) (*Result, error) {
	if len(data) == 0 {
		return nil, newDecodeError(nil, ErrUnsupported)
	}
	if int64(len(data)) > d.opts.MaxUploadBytes {
		return nil, newDecodeError(nil, fmt.Errorf("%w: %d bytes", ErrOversized, len(data)))
	}

	in, resized, err := Prepare(data, d.opts.ResizeThreshold, d.opts.MaxDimension, d.opts.MaxPixels)
	if err != nil {
		return nil, newDecodeError(nil, err)
	}
	if resized {
		b := in.Image.Bounds()
		d.logger.Debug("downscaled scan image",
			"original_bytes", len(data), "bytes", len(in.Data), "width", b.Dx(), "height", b.Dy())
	}

	var failures []error
	attempts := 0
	for _, s := range d.order(platform) {
		if ctx.Err() != nil {
			failures = append(failures, ctx.Err())
			break
		}
		attempts++
		text, err := d.attempt(ctx, s, in)
		if err == nil && strings.TrimSpace(text) != "" {
			d.logger.Info("qr decoded", "strategy", s.Name(), "attempt", attempts, "platform", platform)
			return &Result{Text: text, Strategy: s.Name(), Resized: resized, Attempts: attempts}, nil
		}
		if err == nil {
			err = ErrNoCode
		}
		d.logger.Debug("qr strategy failed", "strategy", s.Name(), "error", err)
		failures = append(failures, fmt.Errorf("%s: %w", s.Name(), err))
	}

	derr := newDecodeError(failures, nil)
	d.logger.Info("qr decode failed", "kind", derr.Kind, "attempts", attempts, "platform", platform)
	return nil, derr
}

// attempt runs one strategy under the per-attempt timeout. Decoders that
// ignore ctx keep running in the background until they return; their result
// is dropped.
func (d *Decoder) attempt(ctx context.Context, s Strategy, in *Input) (string, error) {
	actx, cancel := context.WithTimeout(ctx, d.opts.AttemptTimeout)
	defer cancel()

	type outcome struct {
		text string
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("decoder panic: %v", r)}
			}
		}()
		text, err := s.Decode(actx, in)
		done <- outcome{text, err}
	}()

	select {
	case o := <-done:
		if o.err != nil && actx.Err() != nil && !errors.Is(o.err, context.Canceled) {
			return "", fmt.Errorf("%w: %w", context.DeadlineExceeded, o.err)
		}
		return o.text, o.err
	case <-actx.Done():
		return "", actx.Err()
	}
}
