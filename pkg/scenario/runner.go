package scenario

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/livesub/livesub-go/pkg/component"
	"github.com/livesub/livesub-go/pkg/graphql"
	"github.com/livesub/livesub-go/pkg/livesub"
	"github.com/livesub/livesub-go/pkg/log"
	"github.com/livesub/livesub-go/pkg/memclient"
	"github.com/livesub/livesub-go/pkg/scope"
)

// maxSettlePasses bounds the re-renders of one instance after a step.
const maxSettlePasses = 16

// ErrUnsettled is returned when an instance keeps changing state after
// maxSettlePasses re-renders.
var ErrUnsettled = errors.New("instance did not settle")

// Options configures a run.
type Options struct {
	// Logger receives the lifecycle trace of every layer.
	Logger log.Logger
}

// Run executes sc against a fresh in-memory client and returns the trace.
func Run(sc *Scenario, opts Options) (*Trace, error) {
	s := NewSession(sc.Client, opts)
	defer s.Close()
	for name, doc := range sc.docs {
		s.docs[name] = doc
	}

	trace := &Trace{Name: sc.Name}
	for i, step := range sc.Steps {
		st, err := s.Apply(step)
		if err != nil {
			return trace, fmt.Errorf("step %d (%s): %w", i+1, step.Kind(), err)
		}
		trace.Steps = append(trace.Steps, st)
	}
	trace.Client = s.Stats()
	return trace, nil
}

// Session drives component instances against an in-memory client one step
// at a time. It is not safe for concurrent use.
type Session struct {
	logger log.Logger
	client *memclient.Client

	root     *scope.Scope
	provided *scope.Scope

	docs      map[string]*graphql.Document
	instances map[string]*mounted
	order     []string
	steps     int
}

// NewSession creates a session with its own in-memory client.
func NewSession(cc ClientConfig, opts Options) *Session {
	cfg := memclient.DefaultConfig()
	cfg.Retain = cc.Retain
	if cc.MaxSubscriptions > 0 {
		cfg.MaxSubscriptions = cc.MaxSubscriptions
	}

	client := memclient.New(memclient.WithConfig(cfg), memclient.WithLogger(opts.Logger))
	root := scope.Root()
	return &Session{
		logger:    opts.Logger,
		client:    client,
		root:      root,
		provided:  root.Provide(client),
		docs:      make(map[string]*graphql.Document),
		instances: make(map[string]*mounted),
	}
}

// Define parses src and registers it as document name, replacing any
// previous document of that name.
func (s *Session) Define(name, src string) (*graphql.Document, error) {
	doc, err := graphql.ParseDocument(src)
	if err != nil {
		return nil, err
	}
	s.docs[name] = doc
	return doc, nil
}

// Documents returns the registered document names, sorted.
func (s *Session) Documents() []string {
	names := make([]string, 0, len(s.docs))
	for name := range s.docs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Instances returns the mounted instance names in mount order.
func (s *Session) Instances() []string {
	return append([]string(nil), s.order...)
}

// Apply runs one step, re-renders every instance whose state changed, and
// returns the step trace with a snapshot of each rendered instance.
func (s *Session) Apply(step Step) (StepTrace, error) {
	if step.actions() != 1 {
		return StepTrace{}, invalid("want exactly one action, got %d", step.actions())
	}

	st, err := s.apply(step)
	if err != nil {
		return st, err
	}
	s.steps++
	st.Index = s.steps

	if err := s.settle(); err != nil {
		return st, err
	}
	st.Snapshots = s.Snapshots()
	return st, nil
}

// Snapshots returns the current result of every rendered instance, in mount
// order.
func (s *Session) Snapshots() []Snapshot {
	var out []Snapshot
	for _, name := range s.order {
		m := s.instances[name]
		if m.doc == nil {
			continue
		}
		out = append(out, m.snapshot())
	}
	return out
}

// Stats returns the in-memory client counters.
func (s *Session) Stats() ClientStats {
	return ClientStats{
		Requests:     len(s.client.Requests()),
		Active:       s.client.Count(),
		Unsubscribes: s.client.Unsubscribes(),
	}
}

// Close unmounts every instance.
func (s *Session) Close() {
	for _, name := range s.Instances() {
		s.unmount(name)
	}
}

func (s *Session) apply(step Step) (StepTrace, error) {
	st := StepTrace{Kind: step.Kind()}

	switch {
	case step.Mount != nil:
		if step.Mount.Instance == "" {
			return st, invalid("mount: instance is required")
		}
		if _, ok := s.instances[step.Mount.Instance]; ok {
			return st, invalid("mount: instance %q already mounted", step.Mount.Instance)
		}
		st.Summary = "mount " + step.Mount.Instance
		if step.Mount.Detached {
			st.Summary += " (detached)"
		}
		s.mount(step.Mount)

	case step.Render != nil:
		m, ok := s.instances[step.Render.Instance]
		if !ok {
			return st, invalid("render: instance %q is not mounted", step.Render.Instance)
		}
		doc, ok := s.docs[step.Render.Document]
		if !ok {
			return st, invalid("render: unknown document %q", step.Render.Document)
		}
		st.Summary = fmt.Sprintf("render %s %s %s", m.name, doc.OperationName(), formatValue(step.Render.Variables))
		if step.Render.ExplicitClient {
			st.Summary += " explicit"
		}
		if step.Render.KeepData {
			st.Summary += " keep_data"
		}

		m.doc = doc
		m.opts = livesub.Options{
			Variables:             step.Render.Variables,
			Transport:             step.Render.Transport,
			KeepDataOnResubscribe: step.Render.KeepData,
		}
		if step.Render.ExplicitClient {
			m.opts.Client = s.client
		}
		m.renderOnce()

	case step.Publish != nil:
		p := step.Publish
		if p.Operation == "" {
			return st, invalid("publish: operation is required")
		}
		st.Summary = fmt.Sprintf("publish %s %s", p.Operation, formatValue(p.Data))
		if len(p.Variables) > 0 {
			st.Summary += " where " + formatValue(p.Variables)
		}
		n := s.client.PublishTo(p.Operation, p.Variables, p.Data)
		st.Delivered = &n

	case step.Fail != nil:
		f := step.Fail
		if f.Operation == "" || f.Message == "" {
			return st, invalid("fail: operation and message are required")
		}
		st.Summary = fmt.Sprintf("fail %s %q", f.Operation, f.Message)
		if len(f.Variables) > 0 {
			st.Summary += " where " + formatValue(f.Variables)
		}
		n := s.client.FailTo(f.Operation, f.Variables, errors.New(f.Message))
		st.Delivered = &n

	case step.Disconnect != nil:
		var cause error
		st.Summary = "disconnect"
		if msg := step.Disconnect.Message; msg != "" {
			cause = errors.New(msg)
			st.Summary += fmt.Sprintf(" %q", msg)
		}
		n := s.client.Disconnect(cause)
		st.Delivered = &n

	case step.Unmount != nil:
		if _, ok := s.instances[step.Unmount.Instance]; !ok {
			return st, invalid("unmount: instance %q is not mounted", step.Unmount.Instance)
		}
		st.Summary = "unmount " + step.Unmount.Instance
		s.unmount(step.Unmount.Instance)
	}
	return st, nil
}

func (s *Session) mount(step *MountStep) {
	sc := s.provided
	if step.Detached {
		sc = s.root
	}

	m := &mounted{name: step.Instance, counter: &hookCounter{}}
	m.inst = component.NewInstance(sc,
		component.WithName(step.Instance),
		component.WithLogger(log.NewMultiLogger(m.counter, s.logger)),
	)
	s.instances[step.Instance] = m
	s.order = append(s.order, step.Instance)
}

func (s *Session) unmount(name string) {
	m, ok := s.instances[name]
	if !ok {
		return
	}
	m.inst.Unmount()
	delete(s.instances, name)
	for i, n := range s.order {
		if n == name {
			s.order = append(s.order[:i:i], s.order[i+1:]...)
			break
		}
	}
}

// settle re-renders every instance whose state changed, in mount order,
// until none is dirty.
func (s *Session) settle() error {
	for _, name := range s.order {
		m := s.instances[name]
		if m.doc == nil {
			continue
		}
		for pass := 0; m.inst.Dirty(); pass++ {
			if pass == maxSettlePasses {
				return fmt.Errorf("%w: %s", ErrUnsettled, name)
			}
			m.renderOnce()
		}
	}
	return nil
}

// mounted is one instance driven by a session.
type mounted struct {
	name    string
	inst    *component.Instance
	counter *hookCounter

	doc       *graphql.Document
	opts      livesub.Options
	result    livesub.Result
	renderErr error
}

func (m *mounted) render(inst *component.Instance) error {
	res, err := livesub.UseSubscription(inst, m.doc, m.opts)
	if err != nil {
		return err
	}
	m.result = res
	return nil
}

func (m *mounted) renderOnce() {
	m.renderErr = m.inst.Render(m.render)
}

func (m *mounted) snapshot() Snapshot {
	subs, unsubs := m.counter.counts()
	s := Snapshot{
		Instance:     m.name,
		Rendered:     m.inst.Renders() > 0,
		Loading:      m.result.Loading,
		Data:         m.result.Data,
		Subscribes:   subs,
		Unsubscribes: unsubs,
	}
	if m.result.Err != nil {
		s.Error = m.result.Err.Error()
	}
	if m.renderErr != nil {
		s.RenderError = m.renderErr.Error()
	}
	return s
}

// hookCounter counts hook-level subscribe and unsubscribe events.
type hookCounter struct {
	mu           sync.Mutex
	subscribes   int
	unsubscribes int
}

func (c *hookCounter) Log(event log.Event) {
	if event.Layer != log.LayerHook || event.Subscription == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	switch event.Subscription.Action {
	case log.ActionSubscribe:
		c.subscribes++
	case log.ActionUnsubscribe:
		c.unsubscribes++
	}
}

func (c *hookCounter) counts() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subscribes, c.unsubscribes
}
