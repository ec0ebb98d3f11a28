package trace

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sarchlab/cachesim/mem/mem"
	"github.com/sarchlab/cachesim/sim"
)

// ParseError reports a malformed line of a trace file.
type ParseError struct {
	Line int
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("trace line %d %q: %v", e.Line, e.Text, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

var (
	// ErrUnknownOp is returned when the operation field is not a read or a
	// write.
	ErrUnknownOp = errors.New("unknown operation")

	// ErrMissingField is returned when a line does not have both an
	// operation and an address.
	ErrMissingField = errors.New("expecting an operation and an address")
)

// Reader reads memory accesses from a trace. Each line holds an operation
// (r, R, or 0 for reads; w, W, or 1 for writes) followed by a hexadecimal
// address, separated by spaces, tabs, or a comma. Empty lines and lines that
// start with # are skipped.
type Reader struct {
	scanner     *bufio.Scanner
	idGenerator sim.IDGenerator
	line        int
}

// NewReader creates a Reader that reads from r. Requests are numbered with a
// sequential ID generator.
func NewReader(r io.Reader) *Reader {
	return &Reader{
		scanner:     bufio.NewScanner(r),
		idGenerator: sim.NewSequentialIDGenerator(),
	}
}

// WithIDGenerator replaces the generator that assigns request IDs.
func (r *Reader) WithIDGenerator(g sim.IDGenerator) *Reader {
	r.idGenerator = g
	return r
}

// Next returns the next access in the trace. It returns io.EOF after the last
// access.
func (r *Reader) Next() (*mem.AccessReq, error) {
	for r.scanner.Scan() {
		r.line++

		text := strings.TrimSpace(r.scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		req, err := r.parseLine(text)
		if err != nil {
			return nil, &ParseError{Line: r.line, Text: text, Err: err}
		}

		return req, nil
	}

	if err := r.scanner.Err(); err != nil {
		return nil, err
	}

	return nil, io.EOF
}

// ReadAll returns all the remaining accesses in the trace.
func (r *Reader) ReadAll() ([]*mem.AccessReq, error) {
	var reqs []*mem.AccessReq

	for {
		req, err := r.Next()
		if errors.Is(err, io.EOF) {
			return reqs, nil
		}

		if err != nil {
			return reqs, err
		}

		reqs = append(reqs, req)
	}
}

func (r *Reader) parseLine(text string) (*mem.AccessReq, error) {
	fields := strings.FieldsFunc(text, func(c rune) bool {
		return c == ',' || c == ' ' || c == '\t'
	})
	if len(fields) != 2 {
		return nil, ErrMissingField
	}

	kind, err := parseKind(fields[0])
	if err != nil {
		return nil, err
	}

	address, err := parseAddress(fields[1])
	if err != nil {
		return nil, err
	}

	return &mem.AccessReq{
		ID:      r.idGenerator.Generate(),
		Address: address,
		Kind:    kind,
	}, nil
}

func parseKind(field string) (mem.AccessKind, error) {
	switch field {
	case "r", "R", "0":
		return mem.Read, nil
	case "w", "W", "1":
		return mem.Write, nil
	default:
		return mem.Read, fmt.Errorf("%w %q", ErrUnknownOp, field)
	}
}

func parseAddress(field string) (uint64, error) {
	field = strings.TrimPrefix(strings.TrimPrefix(field, "0x"), "0X")

	address, err := strconv.ParseUint(field, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid address: %w", err)
	}

	return address, nil
}
