// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: internal/selector/worker.go
// Summary: Classifier backed by an external inference process.
// Usage: -classifier-cmd names an executable speaking the framed msgpack protocol below.
// Notes: Every message is a 4-byte big-endian length followed by a msgpack map.
// A worker whose stream broke is replaced on the next prediction.
//
// Protocol:
//   -> {"type":"load","model":"<path>"}          <- {"ok":true}
//   -> {"type":"predict","input":{width,height,data}}  <- {"ok":true,"probabilities":[...]}
//   failures answer {"ok":false,"error":"..."}

package selector

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log"
	"os/exec"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

const (
	maxFrameSize = 64 << 20

	restartBackoff    = time.Second
	maxRestartBackoff = 30 * time.Second
)

// ErrWorkerClosed is returned after the worker process has gone away.
var ErrWorkerClosed = errors.New("selector: classifier worker closed")

type workerRequest struct {
	Type  string  `msgpack:"type"`
	Model string  `msgpack:"model,omitempty"`
	Input *Tensor `msgpack:"input,omitempty"`
}

type workerResponse struct {
	OK            bool      `msgpack:"ok"`
	Error         string    `msgpack:"error,omitempty"`
	Probabilities []float32 `msgpack:"probabilities,omitempty"`
}

func writeFrame(w io.Writer, v interface{}) error {
	payload, err := msgpack.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal msgpack: %w", err)
	}
	var prefix [4]byte
	binary.BigEndian.PutUint32(prefix[:], uint32(len(payload)))
	if _, err := w.Write(prefix[:]); err != nil {
		return fmt.Errorf("write length prefix: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("write msgpack data: %w", err)
	}
	return nil
}

func readFrame(r io.Reader, v interface{}) error {
	var prefix [4]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return err
	}
	n := binary.BigEndian.Uint32(prefix[:])
	if n > maxFrameSize {
		return fmt.Errorf("frame of %d bytes exceeds limit", n)
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return fmt.Errorf("read msgpack data: %w", err)
	}
	return msgpack.Unmarshal(payload, v)
}

// WorkerLoader starts a worker process per Load call.
type WorkerLoader struct {
	Command string
	Args    []string
	Env     []string
	Timeout time.Duration
}

// Load starts a worker for modelPath. The returned classifier respawns the
// worker when a timeout or crash leaves it unusable.
func (l WorkerLoader) Load(ctx context.Context, modelPath string) (Classifier, error) {
	w, err := StartWorker(ctx, l, modelPath)
	if err != nil {
		return nil, err
	}
	return &restartingClassifier{loader: l, model: modelPath, current: w, backoff: restartBackoff, now: time.Now}, nil
}

type restartingClassifier struct {
	loader WorkerLoader
	model  string
	now    func() time.Time

	mu        sync.Mutex
	current   *WorkerClassifier
	backoff   time.Duration
	nextStart time.Time
	closed    bool
}

func (c *restartingClassifier) Predict(ctx context.Context, input Tensor) ([]float32, error) {
	w, err := c.worker(ctx)
	if err != nil {
		return nil, err
	}
	return w.Predict(ctx, input)
}

// worker returns a usable worker, restarting a broken one. The first restart
// is immediate; failed restarts back off up to maxRestartBackoff.
func (c *restartingClassifier) worker(ctx context.Context) (*WorkerClassifier, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrWorkerClosed
	}
	if c.current != nil && c.current.Err() == nil {
		return c.current, nil
	}
	if now := c.now(); now.Before(c.nextStart) {
		return nil, fmt.Errorf("%w: restart in %s", ErrWorkerClosed, c.nextStart.Sub(now).Round(time.Millisecond))
	}
	if c.current != nil {
		log.Printf("Selector: restarting classifier worker: %v", c.current.Err())
		_ = c.current.Close()
		c.current = nil
	}
	w, err := StartWorker(ctx, c.loader, c.model)
	if err != nil {
		c.nextStart = c.now().Add(c.backoff)
		c.backoff = min(c.backoff*2, maxRestartBackoff)
		return nil, err
	}
	c.current = w
	c.backoff = restartBackoff
	c.nextStart = time.Time{}
	return w, nil
}

func (c *restartingClassifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.current == nil {
		return nil
	}
	err := c.current.Close()
	c.current = nil
	return err
}

// WorkerClassifier talks to one inference process.
type WorkerClassifier struct {
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	stdout  *bufio.Reader
	timeout time.Duration
	exited  chan struct{}

	mu     sync.Mutex
	broken error
}

// StartWorker spawns the process and asks it to load modelPath.
func StartWorker(ctx context.Context, l WorkerLoader, modelPath string) (*WorkerClassifier, error) {
	if l.Command == "" {
		return nil, errors.New("selector: no classifier command configured")
	}
	timeout := l.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	cmd := exec.Command(l.Command, l.Args...)
	if len(l.Env) > 0 {
		cmd.Env = l.Env
	}
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("selector: start %s: %w", l.Command, err)
	}

	w := &WorkerClassifier{
		cmd:     cmd,
		stdin:   stdin,
		stdout:  bufio.NewReader(stdout),
		timeout: timeout,
		exited:  make(chan struct{}),
	}
	go w.logStderr(stderr)
	go func() {
		err := cmd.Wait()
		if err != nil {
			debugLog.Printf("Selector: classifier worker exited: %v", err)
		}
		close(w.exited)
	}()

	loadCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if _, err := w.roundTrip(loadCtx, workerRequest{Type: "load", Model: modelPath}, 0); err != nil {
		w.Close()
		return nil, fmt.Errorf("selector: load %s: %w", modelPath, err)
	}
	return w, nil
}

func (w *WorkerClassifier) logStderr(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		log.Printf("Selector: worker: %s", scanner.Text())
	}
}

// Err returns why the worker stopped accepting requests, or nil while it is usable.
func (w *WorkerClassifier) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.broken
}

// Predict sends one frame and waits for its probabilities.
func (w *WorkerClassifier) Predict(ctx context.Context, input Tensor) ([]float32, error) {
	resp, err := w.roundTrip(ctx, workerRequest{Type: "predict", Input: &input}, w.timeout)
	if err != nil {
		return nil, err
	}
	return resp.Probabilities, nil
}

// roundTrip writes a request and reads its response. A write or read that
// times out leaves the stream unsynchronised, so the worker is marked broken.
func (w *WorkerClassifier) roundTrip(ctx context.Context, req workerRequest, readTimeout time.Duration) (*workerResponse, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.broken != nil {
		return nil, w.broken
	}

	writeErr := make(chan error, 1)
	go func() { writeErr <- writeFrame(w.stdin, req) }()
	select {
	case err := <-writeErr:
		if err != nil {
			w.breakLocked(err)
			return nil, err
		}
	case <-time.After(w.timeout):
		err := errors.New("stdin write timeout (worker may be hung)")
		w.breakLocked(err)
		return nil, err
	case <-ctx.Done():
		w.breakLocked(ctx.Err())
		return nil, ctx.Err()
	}

	type result struct {
		resp workerResponse
		err  error
	}
	done := make(chan result, 1)
	go func() {
		var r result
		r.err = readFrame(w.stdout, &r.resp)
		done <- r
	}()
	var timer <-chan time.Time
	if readTimeout > 0 {
		timer = time.After(readTimeout)
	}
	select {
	case r := <-done:
		if r.err != nil {
			w.breakLocked(r.err)
			return nil, r.err
		}
		if !r.resp.OK {
			return nil, fmt.Errorf("worker: %s", r.resp.Error)
		}
		return &r.resp, nil
	case <-timer:
		err := errors.New("response timeout")
		w.breakLocked(err)
		return nil, err
	case <-ctx.Done():
		w.breakLocked(ctx.Err())
		return nil, ctx.Err()
	case <-w.exited:
		w.breakLocked(ErrWorkerClosed)
		return nil, ErrWorkerClosed
	}
}

func (w *WorkerClassifier) breakLocked(cause error) {
	if w.broken != nil {
		return
	}
	w.broken = fmt.Errorf("%w: %v", ErrWorkerClosed, cause)
	_ = w.stdin.Close()
	if w.cmd.Process != nil {
		_ = w.cmd.Process.Kill()
	}
}

// Close stops the worker, killing it if it does not exit within two seconds.
func (w *WorkerClassifier) Close() error {
	w.mu.Lock()
	if w.broken == nil {
		w.broken = ErrWorkerClosed
		_ = w.stdin.Close()
	}
	w.mu.Unlock()

	select {
	case <-w.exited:
	case <-time.After(2 * time.Second):
		if w.cmd.Process != nil {
			_ = w.cmd.Process.Kill()
		}
		<-w.exited
	}
	return nil
}
