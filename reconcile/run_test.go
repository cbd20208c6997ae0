package reconcile

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/anncsu/anncsu-update/executor"
	"github.com/anncsu/anncsu-update/geodiff"
	"github.com/anncsu/anncsu-update/registry"
	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const scenarioReport = `{"geodiff":[{"table":"t","type":"update","changes":[{"column":0,"old":2},{"column":1,"old":"AAA=","new":"BBB="},{"column":2,"old":9}]}]}`

type memOpener map[string]string

func (m memOpener) Handles(source string) bool {
	return strings.HasPrefix(source, "mem://")
}

func (m memOpener) Open(_ context.Context, source string) (io.ReadCloser, error) {
	text, ok := m[source]
	if !ok {
		return nil, errors.Newf("no object %s", source)
	}
	return io.NopCloser(strings.NewReader(text)), nil
}

func TestRun(t *testing.T) {
	ctx := context.Background()

	t.Run("drifted coordinate", func(t *testing.T) {
		f := newFixture(t)
		f.lookup.Set(2, registry.Record{CoordX: registry.Float(5), CoordY: registry.Float(5)})
		res, err := Run(ctx, scenarioReport, testConfig(), zerolog.Nop(), f.reporter, f.deps())
		require.NoError(t, err)
		require.True(t, res.Success)
		require.Len(t, res.Outcomes, 1)
		require.Len(t, f.exec.Named("auth login"), 1)
		require.Len(t, f.exec.Named("coordinate update"), 1)
		require.Equal(t, "auth login --api pa", f.exec.Invocations[0].String())
	})

	t.Run("unchanged coordinate", func(t *testing.T) {
		f := newFixture(t)
		f.lookup.Set(2, registry.Record{CoordX: registry.Float(1), CoordY: registry.Float(1)})
		res, err := Run(ctx, scenarioReport, testConfig(), zerolog.Nop(), f.reporter, f.deps())
		require.NoError(t, err)
		require.True(t, res.Success)
		require.Empty(t, f.exec.Named("coordinate update"))
	})

	t.Run("empty report", func(t *testing.T) {
		f := newFixture(t)
		res, err := Run(ctx, `{"geodiff":[]}`, testConfig(), zerolog.Nop(), f.reporter, f.deps())
		require.NoError(t, err)
		require.True(t, res.Success)
		require.Empty(t, res.Outcomes)
		require.Empty(t, f.lookup.Calls)
	})

	t.Run("malformed report", func(t *testing.T) {
		f := newFixture(t)
		res, err := Run(ctx, "{ not json", testConfig(), zerolog.Nop(), f.reporter, f.deps())
		require.True(t, errors.Is(err, ErrReportLoad))
		require.True(t, errors.Is(err, geodiff.ErrMalformedInput))
		require.False(t, res.Success)
		require.Empty(t, res.Outcomes)
		require.Empty(t, f.exec.Invocations)
	})

	t.Run("authentication fails", func(t *testing.T) {
		f := newFixture(t)
		f.exec.Results = []executor.Result{{ExitStatus: 1, Output: "invalid token"}}
		res, err := Run(ctx, scenarioReport, testConfig(), zerolog.Nop(), f.reporter, f.deps())
		require.True(t, errors.Is(err, ErrAuthentication))
		require.Contains(t, err.Error(), "invalid token")
		require.False(t, res.Success)
		require.Empty(t, f.lookup.Calls)
		require.Len(t, f.exec.Invocations, 1)
	})

	t.Run("authentication cannot run", func(t *testing.T) {
		f := newFixture(t)
		f.exec.Err = errors.New("anncsu: executable file not found")
		_, err := Run(ctx, scenarioReport, testConfig(), zerolog.Nop(), f.reporter, f.deps())
		require.True(t, errors.Is(err, ErrAuthentication))
	})

	t.Run("partial failure carries on", func(t *testing.T) {
		f := newFixture(t)
		f.lookup.Set(2, registry.Record{})
		text := `{"geodiff":[
			{"table":"t","type":"update","changes":[{"column":0,"new":1}]},
			{"table":"t","type":"update","changes":[{"column":0,"new":2},{"column":1,"new":"BBB="}]},
			{"table":"t","type":"delete","changes":[{"column":0,"old":3}]}
		]}`
		res, err := Run(ctx, text, testConfig(), zerolog.Nop(), f.reporter, f.deps())
		require.NoError(t, err)
		require.False(t, res.Success)
		var reasons []Reason
		for _, o := range res.Outcomes {
			reasons = append(reasons, o.Reason)
		}
		require.Equal(t, []Reason{ReasonMissingGeometry, ReasonUpdated, ReasonDeleteNoop}, reasons)
	})

	t.Run("options", func(t *testing.T) {
		f := newFixture(t)
		f.lookup.Set(2, registry.Record{})
		text := `{"geodiff":[
			{"table":"addresses","type":"update","changes":[{"column":0,"new":2},{"column":1,"new":"BBB="}]},
			{"table":"roads","type":"update","changes":[{"column":0,"new":1}]}
		]}`
		res, err := Run(ctx, "mem://bucket/diff.json", testConfig(), zerolog.Nop(), f.reporter, f.deps(),
			WithAPIType("gestori"),
			WithOpener(memOpener{"mem://bucket/diff.json": text}),
			WithTableFilter(regexp.MustCompile("^addresses$")),
			WithDryRun(true),
		)
		require.NoError(t, err)
		require.True(t, res.Success)
		require.Len(t, res.Outcomes, 1)
		require.Equal(t, ReasonDryRun, res.Outcomes[0].Reason)
		require.Equal(t, []string{"auth login --api gestori"}, invocationStrings(f.exec))
	})

	t.Run("report file", func(t *testing.T) {
		f := newFixture(t)
		f.lookup.Set(2, registry.Record{})
		p := filepath.Join(t.TempDir(), "diff.json")
		require.NoError(t, os.WriteFile(p, []byte(scenarioReport), 0o644))
		res, err := Run(ctx, p, testConfig(), zerolog.Nop(), f.reporter, f.deps())
		require.NoError(t, err)
		require.True(t, res.Success)
		require.Len(t, res.Outcomes, 1)
	})

	t.Run("logs entry failures", func(t *testing.T) {
		f := newFixture(t)
		var buf bytes.Buffer
		res, err := Run(ctx, `{"geodiff":[{"table":"t","type":"update","changes":[]}]}`,
			testConfig(), zerolog.New(&buf), f.reporter, f.deps())
		require.NoError(t, err)
		require.False(t, res.Success)
		require.Contains(t, buf.String(), `"level":"warn"`)
		require.Contains(t, buf.String(), "missing identifier")
	})
}

func (f *fixture) deps() Deps {
	return Deps{Lookup: f.lookup, Executor: f.exec, Decoder: f.decoder}
}

func invocationStrings(r *executor.Recorder) []string {
	var ret []string
	for _, inv := range r.Invocations {
		ret = append(ret, inv.String())
	}
	return ret
}
