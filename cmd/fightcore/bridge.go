package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/chiwar/fightcore/internal/dispatcher"
	"github.com/chiwar/fightcore/internal/fighterr"
)

// maxLineSize bounds one command line; fight snapshots in replies are not
// limited by it.
const maxLineSize = 1 << 20

// request is one NDJSON command line. ID is echoed back untouched so a
// caller can pipeline requests.
type request struct {
	ID      json.RawMessage `json:"id,omitempty"`
	Command string          `json:"command"`
	Args    []string        `json:"args"`
}

type errorBody struct {
	Kind    fighterr.Kind `json:"kind"`
	Code    fighterr.Code `json:"code"`
	Message string        `json:"message"`
}

type response struct {
	ID     json.RawMessage `json:"id,omitempty"`
	OK     bool            `json:"ok"`
	Result any             `json:"result,omitempty"`
	Error  *errorBody      `json:"error,omitempty"`
}

// bridge reads commands from in and writes one reply line per command to
// out. Commands are served in order.
type bridge struct {
	d   *dispatcher.Dispatcher
	log *slog.Logger
}

func (b *bridge) serve(ctx context.Context, in io.Reader, out io.Writer) error {
	r := bufio.NewReaderSize(in, 64*1024)
	enc := json.NewEncoder(out)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		raw, tooLong, readErr := readLine(r)
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return fmt.Errorf("reading commands: %w", readErr)
		}

		var reply *response
		if tooLong {
			rsp := failure(nil, fighterr.Newf(fighterr.CodeInvalidValue, "command line exceeds %d bytes", maxLineSize))
			reply = &rsp
		} else if line := bytes.TrimSpace(raw); len(line) > 0 {
			rsp := b.handle(ctx, line)
			reply = &rsp
		}
		if reply != nil {
			if err := enc.Encode(reply); err != nil {
				return fmt.Errorf("writing reply: %w", err)
			}
		}
		if readErr != nil {
			return nil
		}
	}
}

// readLine returns the next line without its terminator. A line longer than
// maxLineSize is consumed and discarded, and reported through tooLong.
func readLine(r *bufio.Reader) (line []byte, tooLong bool, err error) {
	for {
		chunk, err := r.ReadSlice('\n')
		if !tooLong {
			line = append(line, chunk...)
			// room for a trailing \r\n
			if len(line) > maxLineSize+2 {
				tooLong, line = true, nil
			}
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		line = bytes.TrimRight(line, "\r\n")
		if tooLong || len(line) > maxLineSize {
			return nil, true, err
		}
		return line, false, err
	}
}

func (b *bridge) handle(ctx context.Context, line []byte) response {
	var req request
	if err := json.Unmarshal(line, &req); err != nil {
		return failure(nil, fighterr.Wrap(fighterr.CodeInvalidValue, "malformed command line", err))
	}
	if req.Command == "" {
		return failure(req.ID, fighterr.New(fighterr.CodeInvalidValue, "command is required"))
	}
	result, err := b.d.Dispatch(ctx, dispatcher.Event{Command: req.Command, Args: req.Args})
	if err != nil {
		if fighterr.KindOf(err) == fighterr.KindInternal {
			b.log.ErrorContext(ctx, "command failed", "command", req.Command, "error", err)
		}
		return failure(req.ID, err)
	}
	return response{ID: req.ID, OK: true, Result: result}
}

func failure(id json.RawMessage, err error) response {
	body := &errorBody{
		Kind:    fighterr.KindOf(err),
		Code:    fighterr.CodeOf(err),
		Message: err.Error(),
	}
	var fe *fighterr.Error
	if errors.As(err, &fe) && fe.Message != "" {
		body.Message = fe.Message
	}
	return response{ID: id, OK: false, Error: body}
}
