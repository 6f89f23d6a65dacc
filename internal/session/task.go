package session

import (
	"context"
	"sync"
	"time"

	"github.com/qualitytrend/sonarscrape/internal/sonar"
	"github.com/qualitytrend/sonarscrape/schema"
)

// TaskState is the lifecycle state of a background export.
type TaskState string

// All task states.
const (
	TaskRunning   TaskState = "running"
	TaskSucceeded TaskState = "succeeded"
	TaskFailed    TaskState = "failed"
	TaskCancelled TaskState = "cancelled"
)

// TaskStatus is a point-in-time view of a task.
type TaskStatus struct {
	ID        string            `json:"id"`
	Kind      schema.ExportKind `json:"kind"`
	Project   schema.Project    `json:"project"`
	File      string            `json:"file"`
	State     TaskState         `json:"state"`
	Message   string            `json:"message"`
	Rows      int               `json:"rows"`
	Error     string            `json:"error,omitempty"`
	StartedAt time.Time         `json:"started_at"`
}

// Task is one export running on its own goroutine.
type Task struct {
	id      string
	kind    schema.ExportKind
	project schema.Project
	file    string
	started time.Time

	cancel context.CancelFunc
	done   chan struct{}

	mu      sync.Mutex
	state   TaskState
	message string
	result  schema.ExportResult
	err     error
}

func newTask(id string, kind schema.ExportKind, project schema.Project, file string, cancel context.CancelFunc) *Task {
	return &Task{
		id:      id,
		kind:    kind,
		project: project,
		file:    file,
		started: time.Now(),
		cancel:  cancel,
		done:    make(chan struct{}),
		state:   TaskRunning,
	}
}

// ID returns the task identifier.
func (t *Task) ID() string { return t.id }

// File returns the output name the task writes.
func (t *Task) File() string { return t.file }

// Cancel stops the task. A task cancelled before its table is complete writes nothing;
// once cancelled, its status stops changing.
func (t *Task) Cancel() {
	t.mu.Lock()
	if t.state == TaskRunning {
		t.state = TaskCancelled
		t.message = "Cancelled"
	}
	t.mu.Unlock()
	t.cancel()
}

// Done is closed when the task has finished.
func (t *Task) Done() <-chan struct{} { return t.done }

// Wait blocks until the task finishes and returns its error.
func (t *Task) Wait() error {
	<-t.done
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Result returns the export result of a succeeded task.
func (t *Task) Result() schema.ExportResult {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.result
}

// Status returns a copy of the task's current state.
func (t *Task) Status() TaskStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := TaskStatus{
		ID:        t.id,
		Kind:      t.kind,
		Project:   t.project,
		File:      t.file,
		State:     t.state,
		Message:   t.message,
		Rows:      t.result.Rows,
		StartedAt: t.started,
	}
	if t.err != nil && t.state == TaskFailed {
		s.Error = t.err.Error()
	}
	return s
}

// setMessage updates the status text unless the task is no longer running.
func (t *Task) setMessage(msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == TaskRunning {
		t.message = msg
	}
}

// finish records the outcome. A task cancelled earlier keeps its cancelled state.
// The caller closes done afterwards.
func (t *Task) finish(result schema.ExportResult, err error, doneMsg string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.err = err
	if t.state == TaskCancelled {
		return
	}
	if err != nil {
		t.state = TaskFailed
		t.message = sonar.Describe(err)
		return
	}
	t.state = TaskSucceeded
	t.result = result
	t.message = doneMsg
}
