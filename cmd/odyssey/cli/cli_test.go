package cli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-catalog/internal/catalog"
	fixtures "github.com/odyssey-erp/odyssey-catalog/testing"
)

func decodeLines(t *testing.T, out *bytes.Buffer) []SearchOutput {
	t.Helper()
	var outputs []SearchOutput
	sc := bufio.NewScanner(out)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		var o SearchOutput
		require.NoError(t, json.Unmarshal(sc.Bytes(), &o))
		outputs = append(outputs, o)
	}
	return outputs
}

func TestSearchCommandOneShot(t *testing.T) {
	c := NewCatalogCLI(fixtures.SampleSnapshot(), catalog.ServiceConfig{}, nil)
	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)

	code := c.SearchCommand(context.Background(), SearchOptions{
		Query:      "lock",
		JSONOutput: true,
		Stdout:     stdout,
		Stderr:     stderr,
	})
	require.Zero(t, code)
	require.Empty(t, stderr.String())

	outputs := decodeLines(t, stdout)
	require.Len(t, outputs, 1)
	require.Len(t, outputs[0].Result.Items, 2)
	require.Equal(t, int64(3), outputs[0].Result.Items[0].Metrics.TotalSold)
	require.InDelta(t, 120.0, outputs[0].Result.Items[0].Metrics.TotalProfit, 1e-9)
}

func TestSearchCommandInteractiveRendersSettledQuery(t *testing.T) {
	c := NewCatalogCLI(fixtures.SampleSnapshot(), catalog.ServiceConfig{}, nil)
	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)

	code := c.SearchCommand(context.Background(), SearchOptions{
		Interactive: true,
		Debounce:    10 * time.Millisecond,
		Input:       strings.NewReader("h\nhi\nhinge\n"),
		JSONOutput:  true,
		Stdout:      stdout,
		Stderr:      stderr,
	})
	require.Zero(t, code)
	require.Empty(t, stderr.String())

	outputs := decodeLines(t, stdout)
	require.Len(t, outputs, 1)
	require.Equal(t, "hinge", outputs[0].Query)
	require.Len(t, outputs[0].Result.Items, 1)
	require.Equal(t, 12.0, outputs[0].Result.Items[0].Price)
}

func TestSearchCommandHumanOutputAndFilters(t *testing.T) {
	c := NewCatalogCLI(fixtures.SampleSnapshot(), catalog.ServiceConfig{}, nil)
	stdout := new(bytes.Buffer)

	code := c.SearchCommand(context.Background(), SearchOptions{
		Category: "Hardware",
		Stdout:   stdout,
		Stderr:   new(bytes.Buffer),
	})
	require.Zero(t, code)
	require.Contains(t, stdout.String(), `Query "" matched 1 product(s)`)
	require.Contains(t, stdout.String(), "Hinge")
	require.NotContains(t, stdout.String(), "Smart Lock")
}

func TestSearchCommandNumericFilters(t *testing.T) {
	c := NewCatalogCLI(fixtures.SampleSnapshot(), catalog.ServiceConfig{}, nil)
	stdout := new(bytes.Buffer)

	code := c.SearchCommand(context.Background(), SearchOptions{
		Filters:    map[string]string{"quantity": "40"},
		JSONOutput: true,
		Stdout:     stdout,
		Stderr:     new(bytes.Buffer),
	})
	require.Zero(t, code)
	outputs := decodeLines(t, stdout)
	require.Len(t, outputs, 1)
	require.Len(t, outputs[0].Result.Items, 1)
	require.Equal(t, "Hinge", outputs[0].Result.Items[0].Product.Name)

	stderr := new(bytes.Buffer)
	code = c.SearchCommand(context.Background(), SearchOptions{
		Filters: map[string]string{"quantity": "forty"},
		Stdout:  new(bytes.Buffer),
		Stderr:  stderr,
	})
	require.Equal(t, 1, code)
	require.Contains(t, stderr.String(), "quantity must be an integer")
}

func TestSearchCommandRejectsNegativeDebounce(t *testing.T) {
	c := NewCatalogCLI(fixtures.SampleSnapshot(), catalog.ServiceConfig{}, nil)
	stderr := new(bytes.Buffer)
	code := c.SearchCommand(context.Background(), SearchOptions{
		Interactive: true,
		Debounce:    -time.Second,
		Input:       strings.NewReader(""),
		Stdout:      new(bytes.Buffer),
		Stderr:      stderr,
	})
	require.Equal(t, 1, code)
	require.Contains(t, stderr.String(), "delay must not be negative")
}

func TestCategoriesCommand(t *testing.T) {
	c := NewCatalogCLI(fixtures.SampleSnapshot(), catalog.ServiceConfig{}, nil)
	stdout := new(bytes.Buffer)
	require.Zero(t, c.CategoriesCommand(context.Background(), stdout, new(bytes.Buffer)))
	require.Equal(t, "all\nDoor Lock\nHardware\n", stdout.String())
}

type stubImporter struct {
	written int
	err     error
}

func (s stubImporter) ImportSnapshot(ctx context.Context, snap catalog.Snapshot) (int, error) {
	return s.written, s.err
}

type stubBumper struct {
	calls int
}

func (s *stubBumper) Bump(ctx context.Context) (int64, error) {
	s.calls++
	return int64(s.calls + 1), nil
}

func TestImportCommand(t *testing.T) {
	bumper := &stubBumper{}
	stdout := new(bytes.Buffer)
	code := ImportCommand(context.Background(), stubImporter{written: 1}, bumper, ImportOptions{
		Snapshot: fixtures.SampleSnapshot(),
		Stdout:   stdout,
		Stderr:   new(bytes.Buffer),
	})
	require.Zero(t, code)
	require.Equal(t, 1, bumper.calls)
	require.Contains(t, stdout.String(), "Sales version now 2")

	code = ImportCommand(context.Background(), stubImporter{}, bumper, ImportOptions{Stdout: new(bytes.Buffer), Stderr: new(bytes.Buffer)})
	require.Zero(t, code)
	require.Equal(t, 1, bumper.calls)

	stderr := new(bytes.Buffer)
	code = ImportCommand(context.Background(), stubImporter{err: errors.New("tx failed")}, bumper, ImportOptions{Stdout: new(bytes.Buffer), Stderr: stderr})
	require.Equal(t, 1, code)
	require.Contains(t, stderr.String(), "tx failed")
}

func TestJobsCLIRejectsUnknownJob(t *testing.T) {
	c := NewJobsCLI(asynq.RedisClientOpt{Addr: "127.0.0.1:0"})
	defer func() { _ = c.Close() }()
	_, err := c.Trigger(context.Background(), "inventory:revalue", TriggerOptions{})
	require.ErrorContains(t, err, "unsupported job")

	var nilCLI *JobsCLI
	_, err = nilCLI.InspectQueue(context.Background())
	require.Error(t, err)
}
