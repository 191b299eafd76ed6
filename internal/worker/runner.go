package worker

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
	"unicode/utf8"

	"github.com/aryankumar/procpool/internal/capture"
	"github.com/aryankumar/procpool/internal/protocol"
	"github.com/aryankumar/procpool/internal/registry"
)

// truncatedNote is appended when a task prints more than protocol.MaxOutputSize.
const truncatedNote = "\n[procpool: output truncated]\n"

// maxErrorText caps an error message or stack trace that would not fit in one frame.
const maxErrorText = 64 << 10

// RunTask runs one request against reg inside a capture scope and builds its response.
func RunTask(reg *registry.Registry, req protocol.Request) protocol.Response {
	start := time.Now()
	resp := protocol.Response{Seq: req.Seq, Index: req.Index}
	origin := fmt.Sprintf("%s(%s) in worker pid %d", req.Func, req.Arg, os.Getpid())

	var (
		value   json.RawMessage
		callErr error
	)

	captureErr := capture.Do(func() error {
		value, callErr = reg.Call(req.Func, req.Arg)
		if callErr != nil && req.Policy == protocol.LogAndContinue {
			fmt.Fprintf(os.Stderr, "procpool: %s failed: %v\n", origin, callErr)
			var pe *registry.PanicError
			if errors.As(callErr, &pe) {
				os.Stderr.Write(pe.Stack)
			}
		}
		return nil
	}, func(out []byte) error {
		resp.Output = limitOutput(out)
		return nil
	})

	resp.Duration = time.Since(start)

	switch {
	case captureErr != nil && callErr == nil && value == nil:
		// The body never ran.
		resp.Error = &protocol.ErrorInfo{Message: captureErr.Error(), Origin: origin}
	case callErr != nil && req.Policy == protocol.LogAndContinue:
		// Contained: the error is already part of Output, the value is the null sentinel.
		resp.Error = errorInfo(callErr, origin)
		resp.Suppressed = true
		resp.Value = json.RawMessage("null")
	case callErr != nil:
		resp.Error = errorInfo(callErr, origin)
	default:
		resp.Value = value
	}

	fitResponse(&resp, req.Policy, origin)
	return resp
}

// fitResponse shrinks resp until it can be sent in a single frame. Console text is given up
// first; a result that still does not fit becomes a task failure under the request's policy.
func fitResponse(resp *protocol.Response, policy protocol.Policy, origin string) {
	if encodedSize(resp) <= protocol.MaxMessageSize {
		return
	}

	output := resp.Output
	resp.Output = nil

	var note string
	if encodedSize(resp) > protocol.MaxMessageSize {
		if resp.Error == nil {
			err := fmt.Errorf("result of %d bytes exceeds the %d byte message limit", len(resp.Value), protocol.MaxMessageSize)
			resp.Error = &protocol.ErrorInfo{Message: err.Error(), Origin: origin}
			resp.Value = nil
			if policy == protocol.LogAndContinue {
				resp.Suppressed = true
				resp.Value = json.RawMessage("null")
				note = fmt.Sprintf("procpool: %s failed: %v\n", origin, err)
			}
		} else {
			resp.Error.Message = truncateText(resp.Error.Message)
			resp.Error.Stack = truncateText(resp.Error.Stack)
		}
	}

	// Output travels base64 encoded; keep what still fits with some room for the field name.
	budget := (protocol.MaxMessageSize-encodedSize(resp)-64)/4*3 - len(truncatedNote) - len(note)
	if len(output) > budget {
		budget = max(budget, 0)
		output = append(output[:budget:budget], truncatedNote...)
	}
	resp.Output = append(output, note...)
	if len(resp.Output) == 0 {
		resp.Output = nil
	}
}

func encodedSize(resp *protocol.Response) int {
	data, err := json.Marshal(protocol.Message{Type: protocol.MsgTypeResponse, Response: resp})
	if err != nil {
		return 0
	}
	return len(data)
}

func truncateText(s string) string {
	if len(s) <= maxErrorText {
		return s
	}
	cut := maxErrorText
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + " [truncated]"
}

func errorInfo(err error, origin string) *protocol.ErrorInfo {
	info := &protocol.ErrorInfo{Message: err.Error(), Origin: origin}
	var pe *registry.PanicError
	if errors.As(err, &pe) {
		info.Panic = true
		info.Stack = string(pe.Stack)
	}
	return info
}

func limitOutput(out []byte) []byte {
	if len(out) == 0 {
		return nil
	}
	if len(out) <= protocol.MaxOutputSize {
		return out
	}
	limited := make([]byte, 0, protocol.MaxOutputSize+len(truncatedNote))
	limited = append(limited, out[:protocol.MaxOutputSize]...)
	return append(limited, truncatedNote...)
}
