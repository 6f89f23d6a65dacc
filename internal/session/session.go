// Package session drives interactive exports: connect to a server, pick a
// project and run exports in the background while the caller keeps going.
package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"sync"

	"github.com/qualitytrend/sonarscrape/core"
	"github.com/qualitytrend/sonarscrape/internal/contract"
	"github.com/qualitytrend/sonarscrape/internal/sonar"
	"github.com/qualitytrend/sonarscrape/schema"
)

var (
	// ErrNotConnected is returned by exports before a successful Connect.
	ErrNotConnected = errors.New("not connected to a server")

	// ErrUnknownProject is returned for a key missing from the current project list.
	ErrUnknownProject = errors.New("project not found")

	// ErrTaskInFlight is returned when an export to the same file is still running.
	ErrTaskInFlight = errors.New("an export to this file is already running")
)

// Session holds the server, its project list and the background tasks.
type Session struct {
	fetcher  contract.Fetcher
	store    contract.TableStore
	language string
	opts     []core.ExporterOption

	root   context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	server     string
	projects   []schema.Project
	metricKeys []string
	ruleKeys   []string
	status     string
	tasks      map[string]*Task
	inFlight   map[string]*Task // output file -> running task
	nextID     int
}

// New creates a disconnected session. Exports are written to store.
func New(fetcher contract.Fetcher, store contract.TableStore, language string, opts ...core.ExporterOption) *Session {
	root, cancel := context.WithCancel(context.Background())
	return &Session{
		fetcher:  fetcher,
		store:    store,
		language: language,
		opts:     opts,
		root:     root,
		cancel:   cancel,
		tasks:    make(map[string]*Task),
		inFlight: make(map[string]*Task),
	}
}

func (s *Session) exporter(server string, extra ...core.ExporterOption) *core.Exporter {
	opts := append(slices.Clone(s.opts), extra...)
	return core.NewExporter(s.fetcher, sonar.NewAPI(server, s.language), s.store, opts...)
}

func (s *Session) setStatus(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = msg
}

// Status returns the last session-level message.
func (s *Session) Status() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Server returns the connected server, or "" before Connect.
func (s *Session) Server() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.server
}

// Connect loads every project of server and makes it the current server.
// On failure the previous connection is kept.
func (s *Session) Connect(ctx context.Context, server string) ([]schema.Project, error) {
	server, err := contract.NormalizeServer(server)
	if err != nil {
		return nil, err
	}
	s.setStatus("Getting project list")

	projects, err := s.exporter(server).Projects(ctx, "")
	if err != nil {
		switch {
		case errors.Is(err, context.Canceled):
		case errors.Is(err, sonar.ErrHostNotFound):
			s.setStatus(fmt.Sprintf("Host %s not found", server))
		default:
			s.setStatus(fmt.Sprintf("Could not reach %s: %s", server, sonar.Describe(err)))
		}
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.server = server
	s.projects = projects
	s.metricKeys = nil
	s.ruleKeys = nil
	s.status = fmt.Sprintf("Retrieved %d projects from %s", len(projects), server)
	return slices.Clone(projects), nil
}

// Projects returns the current project list.
func (s *Session) Projects() []schema.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.projects)
}

// Project looks up key in the current project list.
func (s *Session) Project(key string) (schema.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server == "" {
		return schema.Project{}, ErrNotConnected
	}
	for _, p := range s.projects {
		if p.Key == key {
			return p, nil
		}
	}
	return schema.Project{}, fmt.Errorf("%w: %s", ErrUnknownProject, key)
}

// IssuesFile is the output name of an issue export of project.
func IssuesFile(project schema.Project) string {
	return contract.SafeFileName(project.Key) + "-issues.csv"
}

// MeasuresFile is the output name of a measure export of project.
func MeasuresFile(project schema.Project) string {
	return contract.SafeFileName(project.Key) + "-measures.csv"
}

// ExportIssues starts a background export of the current open issues of a project.
func (s *Session) ExportIssues(key string) (*Task, error) {
	project, err := s.Project(key)
	if err != nil {
		return nil, err
	}
	file := IssuesFile(project)
	return s.start(schema.IssuesExport, project, file,
		fmt.Sprintf("Exporting issues for %s (%s)", project.Name, project.Key),
		"Current issues saved to %s",
		func(ctx context.Context, e *core.Exporter) (schema.ExportResult, error) {
			_, ruleKeys, err := s.universe(ctx, e, false)
			if err != nil {
				return schema.ExportResult{}, err
			}
			return e.ExportIssueLog(ctx, file, project.Key, schema.StatusOpen, ruleKeys)
		})
}

// ExportMeasures starts a background export of the current snapshot of a project.
func (s *Session) ExportMeasures(key string) (*Task, error) {
	project, err := s.Project(key)
	if err != nil {
		return nil, err
	}
	file := MeasuresFile(project)
	return s.start(schema.SnapshotExport, project, file,
		fmt.Sprintf("Exporting measures for %s (%s)", project.Name, project.Key),
		"Current measures saved to %s",
		func(ctx context.Context, e *core.Exporter) (schema.ExportResult, error) {
			metricKeys, ruleKeys, err := s.universe(ctx, e, true)
			if err != nil {
				return schema.ExportResult{}, err
			}
			return e.ExportSnapshot(ctx, file, []string{project.Key}, metricKeys, ruleKeys)
		})
}

type exportFunc func(ctx context.Context, e *core.Exporter) (schema.ExportResult, error)

// start registers a task for file and runs fn on a new goroutine.
func (s *Session) start(kind schema.ExportKind, project schema.Project, file, startMsg, doneFormat string, fn exportFunc) (*Task, error) {
	s.mu.Lock()
	if running, ok := s.inFlight[file]; ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s (task %s)", ErrTaskInFlight, file, running.ID())
	}
	server := s.server
	s.nextID++
	ctx, cancel := context.WithCancel(s.root)
	task := newTask("task-"+strconv.Itoa(s.nextID), kind, project, file, cancel)
	s.tasks[task.id] = task
	s.inFlight[file] = task
	s.status = startMsg
	s.mu.Unlock()

	task.setMessage(startMsg)
	e := s.exporter(server, core.WithStatus(task.setMessage))

	go func() {
		defer cancel()
		result, err := fn(ctx, e)
		doneMsg := ""
		if err == nil {
			doneMsg = fmt.Sprintf(doneFormat, result.File)
		}
		task.finish(result, err, doneMsg)

		s.mu.Lock()
		if s.inFlight[file] == task {
			delete(s.inFlight, file)
		}
		if st := task.Status(); st.State != TaskCancelled {
			s.status = st.Message
		}
		s.mu.Unlock()
		close(task.done)
	}()
	return task, nil
}

// universe returns the rule keys, and the metric keys when withMetrics is set,
// fetching each at most once per connection.
func (s *Session) universe(ctx context.Context, e *core.Exporter, withMetrics bool) ([]string, []string, error) {
	s.mu.Lock()
	metricKeys, ruleKeys := s.metricKeys, s.ruleKeys
	s.mu.Unlock()

	var err error
	if withMetrics && metricKeys == nil {
		if metricKeys, err = e.MetricKeys(ctx); err != nil {
			return nil, nil, err
		}
	}
	if ruleKeys == nil {
		if ruleKeys, err = e.RuleKeys(ctx); err != nil {
			return nil, nil, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if metricKeys != nil {
		s.metricKeys = metricKeys
	}
	s.ruleKeys = ruleKeys
	return metricKeys, ruleKeys, nil
}

// Task returns the task with the given ID.
func (s *Session) Task(id string) (*Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	return t, ok
}

// Tasks returns every task started in this session, oldest first.
func (s *Session) Tasks() []*Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	tasks := make([]*Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		tasks = append(tasks, t)
	}
	slices.SortFunc(tasks, func(a, b *Task) int {
		return taskNumber(a.id) - taskNumber(b.id)
	})
	return tasks
}

func taskNumber(id string) int {
	n, _ := strconv.Atoi(id[len("task-"):])
	return n
}

// Close cancels every running task and waits for them to stop.
func (s *Session) Close() {
	tasks := s.Tasks()
	for _, t := range tasks {
		t.Cancel()
	}
	s.cancel()
	for _, t := range tasks {
		<-t.Done()
	}
}
