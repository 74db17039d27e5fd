package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deckstamp/internal/deck"
	"deckstamp/internal/pipeline"
	"deckstamp/internal/render"
	"deckstamp/internal/testsupport"
)

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("ANNOTATION_MARKER", "")
	t.Setenv("RENDER_BINARY", "")
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeDeck(t *testing.T, slides int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "Quarterly Review.pptx")
	require.NoError(t, os.WriteFile(path, testsupport.BuildDeck(t, slides), 0o600))
	return path
}

func TestAnnotateThenInspect(t *testing.T) {
	in := writeDeck(t, 3)

	out, _, err := runCLI(t, "annotate", in, "--name", "Jane Doe")
	require.NoError(t, err)
	want := filepath.Join(filepath.Dir(in), "Quarterly Review__named.pptx")
	assert.Contains(t, out, "Wrote "+want+" (3 slides labelled, 0 replaced)")

	out, _, err = runCLI(t, "inspect", want)
	require.NoError(t, err)

	var slides []deck.SlideInfo
	require.NoError(t, json.Unmarshal([]byte(out), &slides))
	require.Len(t, slides, 3)
	for _, s := range slides {
		require.Len(t, s.Annotations, 1)
		assert.Equal(t, "Jane Doe", s.Annotations[0].Text)
	}
}

func TestAnnotateRequiresName(t *testing.T) {
	in := writeDeck(t, 1)
	_, _, err := runCLI(t, "annotate", in, "--name", "  ")
	assert.ErrorIs(t, err, deck.ErrEmptyLabel)
}

func TestAnnotateTrimsName(t *testing.T) {
	in := writeDeck(t, 1)
	dest := filepath.Join(t.TempDir(), "out.pptx")

	_, _, err := runCLI(t, "annotate", in, "-n", "  Jane Doe  ", "-o", dest)
	require.NoError(t, err)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	slides, err := deck.Inspect(data, deck.DefaultConfig().Marker)
	require.NoError(t, err)
	require.Len(t, slides[0].Annotations, 1)
	assert.Equal(t, "Jane Doe", slides[0].Annotations[0].Text)
}

func TestAnnotateCustomOutput(t *testing.T) {
	in := writeDeck(t, 2)
	dest := filepath.Join(t.TempDir(), "out.pptx")

	_, _, err := runCLI(t, "annotate", in, "-n", "Ops", "-o", dest, "--marker", "__CUSTOM__")
	require.NoError(t, err)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	slides, err := deck.Inspect(data, "__CUSTOM__")
	require.NoError(t, err)
	assert.Len(t, slides[1].Annotations, 1)
}

func TestInspectRejectsNonDeck(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.pptx")
	require.NoError(t, os.WriteFile(path, []byte("plain text"), 0o600))

	_, _, err := runCLI(t, "inspect", path)
	assert.Error(t, err)
}

func TestDoctor(t *testing.T) {
	t.Run("missing engine", func(t *testing.T) {
		out, _, err := runCLI(t, "doctor", "--soffice", filepath.Join(t.TempDir(), "nope"))
		assert.EqualError(t, err, "conversion engine unavailable")

		var st render.Status
		require.NoError(t, json.Unmarshal([]byte(out), &st))
		assert.False(t, st.Available)
	})

	t.Run("found engine", func(t *testing.T) {
		out, _, err := runCLI(t, "doctor", "--soffice", "sh")
		require.NoError(t, err)

		var st render.Status
		require.NoError(t, json.Unmarshal([]byte(out), &st))
		assert.True(t, st.Available)
		assert.NotEmpty(t, st.Path)
	})
}

func TestStampWithStubEngine(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell stub requires a POSIX shell")
	}
	stub := filepath.Join(t.TempDir(), "soffice-stub")
	script := `#!/bin/sh
outdir=""
prev=""
for a in "$@"; do
  if [ "$prev" = "--outdir" ]; then outdir="$a"; fi
  prev="$a"
  last="$a"
done
name=$(basename "$last" .pptx)
printf '%%PDF-1.7 stub' > "$outdir/$name.pdf"
`
	require.NoError(t, os.WriteFile(stub, []byte(script), 0o755))
	in := writeDeck(t, 2)

	out, _, err := runCLI(t, "stamp", in, "--name", "Jane", "--soffice", stub)
	require.NoError(t, err)

	want := filepath.Join(filepath.Dir(in), "Quarterly Review__named.pdf")
	assert.Contains(t, out, "Wrote "+want+" (2 slides labelled)")
	pdf, err := os.ReadFile(want)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7 stub", string(pdf))
}

func TestStampEmptyName(t *testing.T) {
	in := writeDeck(t, 1)
	_, _, err := runCLI(t, "stamp", in, "--soffice", "sh")
	require.Error(t, err)
	assert.Equal(t, pipeline.KindEmptyLabel, pipeline.KindOf(err))
}
