package pipeline_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deckstamp/internal/archival"
	"deckstamp/internal/deck"
	"deckstamp/internal/pipeline"
	"deckstamp/internal/render"
	"deckstamp/internal/render/rendertest"
	"deckstamp/internal/testsupport"
)

type stubProber bool

func (p stubProber) Available(context.Context) bool { return bool(p) }

type recordingEffects struct {
	mu   sync.Mutex
	jobs []archival.Job
}

func (r *recordingEffects) Dispatch(_ context.Context, job archival.Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs = append(r.jobs, job)
}

func (r *recordingEffects) all() []archival.Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]archival.Job(nil), r.jobs...)
}

type panicRenderer struct{}

func (panicRenderer) Render(context.Context, string, string) (string, error) {
	panic("engine exploded")
}

type harness struct {
	orch     *pipeline.Orchestrator
	exec     *rendertest.Executor
	effects  *recordingEffects
	tempRoot string
}

type harnessOption func(*harnessConfig)

type harnessConfig struct {
	prober   pipeline.Prober
	renderer pipeline.Renderer
	maxBytes int64
}

func withProber(p pipeline.Prober) harnessOption {
	return func(c *harnessConfig) { c.prober = p }
}

func withRenderer(r pipeline.Renderer) harnessOption {
	return func(c *harnessConfig) { c.renderer = r }
}

func withMaxBytes(n int64) harnessOption {
	return func(c *harnessConfig) { c.maxBytes = n }
}

func newHarness(t *testing.T, exec *rendertest.Executor, opts ...harnessOption) *harness {
	t.Helper()
	cfg := harnessConfig{prober: stubProber(true)}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.renderer == nil {
		r, err := render.New(render.Config{Binary: "soffice"}, render.WithExecutor(exec))
		require.NoError(t, err)
		cfg.renderer = r
	}
	annotator, err := deck.NewAnnotator(deck.DefaultConfig())
	require.NoError(t, err)

	h := &harness{exec: exec, effects: &recordingEffects{}, tempRoot: t.TempDir()}
	h.orch, err = pipeline.New(
		pipeline.Config{MaxUploadBytes: cfg.maxBytes, TempDir: h.tempRoot},
		annotator, cfg.renderer, cfg.prober,
		pipeline.WithSideEffects(h.effects),
	)
	require.NoError(t, err)
	return h
}

func (h *harness) assertTempRootEmpty(t *testing.T) {
	t.Helper()
	entries, err := os.ReadDir(h.tempRoot)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func requireKind(t *testing.T, err error, kind pipeline.Kind) *pipeline.Error {
	t.Helper()
	require.Error(t, err)
	var pe *pipeline.Error
	require.True(t, errors.As(err, &pe), "want *pipeline.Error, got %T", err)
	assert.Equal(t, kind, pe.Kind)
	return pe
}

func TestProcessThreeSlideDeck(t *testing.T) {
	var inspected []deck.SlideInfo
	exec := &rendertest.Executor{PDF: []byte("%PDF-1.7 rendered")}
	exec.OnInvoke = func(cmd render.Command) {
		data, err := os.ReadFile(rendertest.Input(cmd.Args))
		require.NoError(t, err)
		inspected, err = deck.Inspect(data, deck.DefaultConfig().Marker)
		require.NoError(t, err)
	}
	h := newHarness(t, exec)
	original := testsupport.BuildDeck(t, 3)

	res, err := h.orch.Process(context.Background(), pipeline.Request{
		ID:       "conv-1",
		Filename: "Quarterly Review.pptx",
		Label:    "Jane Doe",
		Data:     original,
	})
	require.NoError(t, err)

	assert.Equal(t, []byte("%PDF-1.7 rendered"), res.PDF)
	assert.Equal(t, "Quarterly Review__named.pdf", res.DownloadName)
	assert.Equal(t, "Quarterly Review.pptx", res.Filename)
	assert.Equal(t, 3, res.Slides)
	assert.Zero(t, res.Replaced)

	require.Len(t, inspected, 3)
	for _, s := range inspected {
		require.Len(t, s.Annotations, 1)
		assert.Equal(t, "Jane Doe", s.Annotations[0].Text)
	}

	jobs := h.effects.all()
	require.Len(t, jobs, 1)
	assert.Equal(t, "conv-1", jobs[0].Ref)
	assert.Equal(t, "Quarterly Review.pptx", jobs[0].Filename)
	assert.Equal(t, original, jobs[0].Data)

	calls := h.exec.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, rendertest.Input(calls[0].Args), "Quarterly Review.pptx")
	h.assertTempRootEmpty(t)
}

func TestProcessTrimsLabel(t *testing.T) {
	var inspected []deck.SlideInfo
	exec := &rendertest.Executor{}
	exec.OnInvoke = func(cmd render.Command) {
		data, err := os.ReadFile(rendertest.Input(cmd.Args))
		require.NoError(t, err)
		inspected, err = deck.Inspect(data, deck.DefaultConfig().Marker)
		require.NoError(t, err)
	}
	h := newHarness(t, exec)

	_, err := h.orch.Process(context.Background(), pipeline.Request{
		Filename: "deck.pptx",
		Label:    "  Jane Doe  ",
		Data:     testsupport.BuildDeck(t, 2),
	})
	require.NoError(t, err)

	require.Len(t, inspected, 2)
	for _, s := range inspected {
		require.Len(t, s.Annotations, 1)
		assert.Equal(t, "Jane Doe", s.Annotations[0].Text)
	}
}

func TestProcessUppercaseExtension(t *testing.T) {
	h := newHarness(t, &rendertest.Executor{})
	res, err := h.orch.Process(context.Background(), pipeline.Request{
		Filename: "DECK.PPTX", Label: "A", Data: testsupport.BuildDeck(t, 1),
	})
	require.NoError(t, err)
	assert.Equal(t, "DECK__named.pdf", res.DownloadName)
}

func TestProcessRejectsInput(t *testing.T) {
	valid := func(t *testing.T) []byte { return testsupport.BuildDeck(t, 2) }
	tests := []struct {
		name     string
		filename string
		label    string
		data     func(t *testing.T) []byte
		maxBytes int64
		kind     pipeline.Kind
		message  string
	}{
		{name: "empty label", filename: "a.pptx", label: "", data: valid, kind: pipeline.KindEmptyLabel, message: "Name is required."},
		{name: "whitespace label", filename: "a.pptx", label: " \t\n ", data: valid, kind: pipeline.KindEmptyLabel, message: "Name is required."},
		{name: "wrong extension", filename: "a.ppt", label: "A", data: valid, kind: pipeline.KindUnsupportedInput, message: "Upload a .pptx file."},
		{name: "no filename", filename: "", label: "A", data: valid, kind: pipeline.KindUnsupportedInput, message: "Upload a .pptx file."},
		{
			name: "too large", filename: "a.pptx", label: "A", maxBytes: 64,
			data: valid, kind: pipeline.KindPayloadTooLarge,
		},
		{
			name: "not a zip", filename: "a.pptx", label: "A",
			data:    func(*testing.T) []byte { return []byte("plain text") },
			kind:    pipeline.KindValidation,
			message: "Uploaded file is not a valid .pptx",
		},
		{
			name: "manifest-less zip", filename: "a.pptx", label: "A",
			data: func(t *testing.T) []byte {
				return testsupport.BuildZip(t, map[string]string{"ppt/presentation.xml": "<p/>"})
			},
			kind:    pipeline.KindValidation,
			message: "Uploaded file is not a valid .pptx",
		},
		{
			name: "manifest but no presentation", filename: "a.pptx", label: "A",
			data: func(t *testing.T) []byte {
				return testsupport.BuildZip(t, map[string]string{"[Content_Types].xml": "<Types/>"})
			},
			kind:    pipeline.KindValidation,
			message: "Uploaded file is not a valid .pptx",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := &rendertest.Executor{}
			h := newHarness(t, exec, withMaxBytes(tt.maxBytes))

			res, err := h.orch.Process(context.Background(), pipeline.Request{
				Filename: tt.filename, Label: tt.label, Data: tt.data(t),
			})
			assert.Nil(t, res)
			pe := requireKind(t, err, tt.kind)
			assert.True(t, pe.IsInputError())
			if tt.message != "" {
				assert.Equal(t, tt.message, pe.Message)
			}
			assert.Empty(t, exec.Calls())
			h.assertTempRootEmpty(t)
		})
	}
}

func TestProcessInvalidContainerSkipsSideEffects(t *testing.T) {
	h := newHarness(t, &rendertest.Executor{})
	_, err := h.orch.Process(context.Background(), pipeline.Request{
		Filename: "a.pptx", Label: "A",
		Data: testsupport.BuildZip(t, map[string]string{"ppt/slides/slide1.xml": "<p:sld/>"}),
	})
	requireKind(t, err, pipeline.KindValidation)
	assert.Empty(t, h.effects.all())
}

func TestProcessRendererUnavailable(t *testing.T) {
	exec := &rendertest.Executor{}
	h := newHarness(t, exec, withProber(stubProber(false)))

	_, err := h.orch.Process(context.Background(), pipeline.Request{
		Filename: "a.pptx", Label: "A", Data: testsupport.BuildDeck(t, 1),
	})
	pe := requireKind(t, err, pipeline.KindRendererUnavailable)
	assert.False(t, pe.IsInputError())
	assert.Empty(t, exec.Calls())
	assert.Len(t, h.effects.all(), 1, "side effects run before the availability probe")
	h.assertTempRootEmpty(t)
}

func TestProcessRenderFailures(t *testing.T) {
	tests := []struct {
		name string
		exec *rendertest.Executor
		kind pipeline.Kind
	}{
		{name: "non-zero exit", exec: &rendertest.Executor{ExitCode: 1, Stderr: "/opt/secret/path: general I/O error"}, kind: pipeline.KindRendering},
		{name: "no output", exec: &rendertest.Executor{OutputName: rendertest.NoOutput}, kind: pipeline.KindRendering},
		{name: "binary vanished", exec: &rendertest.Executor{StartErr: os.ErrNotExist}, kind: pipeline.KindRendererUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.exec)
			_, err := h.orch.Process(context.Background(), pipeline.Request{
				Filename: "a.pptx", Label: "A", Data: testsupport.BuildDeck(t, 2),
			})
			pe := requireKind(t, err, tt.kind)
			assert.NotContains(t, pe.Message, "secret")
			require.Len(t, tt.exec.Calls(), 1)
			h.assertTempRootEmpty(t)
		})
	}
}

func TestProcessRecoversPanics(t *testing.T) {
	h := newHarness(t, nil, withRenderer(panicRenderer{}))

	res, err := h.orch.Process(context.Background(), pipeline.Request{
		Filename: "a.pptx", Label: "A", Data: testsupport.BuildDeck(t, 1),
	})
	assert.Nil(t, res)
	pe := requireKind(t, err, pipeline.KindInternal)
	assert.Equal(t, "Processing failed.", pe.Message)
	assert.Contains(t, pe.Err.Error(), "engine exploded")
	h.assertTempRootEmpty(t)
}

func TestProcessReannotatesLabelledDeck(t *testing.T) {
	marker := deck.DefaultConfig().Marker
	var inspected []deck.SlideInfo
	exec := &rendertest.Executor{}
	exec.OnInvoke = func(cmd render.Command) {
		data, err := os.ReadFile(rendertest.Input(cmd.Args))
		require.NoError(t, err)
		inspected, err = deck.Inspect(data, marker)
		require.NoError(t, err)
	}
	h := newHarness(t, exec)
	data := testsupport.BuildDeck(t, 2, testsupport.WithShape(0, testsupport.LabelShape(9, marker, "Old Name")))

	res, err := h.orch.Process(context.Background(), pipeline.Request{Filename: "a.pptx", Label: "New Name", Data: data})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Replaced)
	require.Len(t, inspected, 2)
	for _, s := range inspected {
		require.Len(t, s.Annotations, 1)
		assert.Equal(t, "New Name", s.Annotations[0].Text)
	}
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := pipeline.New(pipeline.Config{}, nil, panicRenderer{}, stubProber(true))
	assert.Error(t, err)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, pipeline.KindInternal, pipeline.KindOf(errors.New("x")))
	assert.Equal(t, pipeline.KindValidation, pipeline.KindOf(&pipeline.Error{Kind: pipeline.KindValidation}))
}

func TestTooLargeMessage(t *testing.T) {
	assert.Equal(t, "File too large (max 50 MB).", pipeline.TooLargeMessage(50<<20))
}
