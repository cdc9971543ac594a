package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/odyssey-erp/odyssey-catalog/internal/catalog"
	"github.com/odyssey-erp/odyssey-catalog/internal/debounce"
)

// CatalogCLI runs catalog queries against an exported snapshot.
type CatalogCLI struct {
	service *catalog.Service
}

// NewCatalogCLI loads a snapshot into an in-process repository.
func NewCatalogCLI(snap catalog.Snapshot, cfg catalog.ServiceConfig, logger *slog.Logger) *CatalogCLI {
	repo := catalog.NewMemoryRepository(snap)
	return &CatalogCLI{service: catalog.NewService(repo, repo, logger, nil, cfg)}
}

// LoadSnapshot reads a snapshot file. "-" reads standard input.
func LoadSnapshot(path string) (catalog.Snapshot, error) {
	if path == "" || path == "-" {
		return catalog.DecodeSnapshot(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return catalog.Snapshot{}, err
	}
	defer f.Close()
	return catalog.DecodeSnapshot(f)
}

// SearchOptions defines available flags for the search command.
type SearchOptions struct {
	Query       string
	Fields      []string
	Category    string
	Filters     map[string]string
	Interactive bool
	Debounce    time.Duration
	JSONOutput  bool
	Input       io.Reader
	Stdout      io.Writer
	Stderr      io.Writer
}

// SearchOutput is the JSON line emitted for every rendered query.
type SearchOutput struct {
	Query  string         `json:"query"`
	Result catalog.Result `json:"result"`
}

// SearchCommand runs one query, or in interactive mode reads query lines from
// Input and renders only the line that stayed unchanged for the debounce delay.
func (c *CatalogCLI) SearchCommand(ctx context.Context, opts SearchOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	criteria, err := catalog.ParseCriteria(opts.Filters)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "search: %v\n", err)
		return 1
	}
	if opts.Category != "" {
		criteria[catalog.FieldCategory] = opts.Category
	}

	run := func(text string) error {
		res, err := c.service.Search(ctx, catalog.Query{Text: text, Fields: opts.Fields, Criteria: criteria})
		if err != nil {
			return err
		}
		if opts.JSONOutput {
			return json.NewEncoder(opts.Stdout).Encode(SearchOutput{Query: text, Result: res})
		}
		renderSearchHuman(opts.Stdout, text, res)
		return nil
	}

	if !opts.Interactive {
		if err := run(opts.Query); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "search: %v\n", err)
			return 1
		}
		return 0
	}

	settled, err := debounce.New[string](ctx, opts.Debounce)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "search: %v\n", err)
		return 1
	}
	defer settled.Stop()

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(opts.Input)
		for sc.Scan() {
			select {
			case lines <- strings.TrimSpace(sc.Text()):
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return 0
		case line, ok := <-lines:
			if ok {
				settled.Push(line)
				continue
			}
			lines = nil
			if settled.Pending() {
				continue
			}
			select {
			case q, ok := <-settled.C():
				if !ok {
					return 0
				}
				if err := run(q); err != nil {
					_, _ = fmt.Fprintf(opts.Stderr, "search: %v\n", err)
					return 1
				}
			default:
			}
			return 0
		case q, ok := <-settled.C():
			if !ok {
				return 0
			}
			if err := run(q); err != nil {
				_, _ = fmt.Fprintf(opts.Stderr, "search: %v\n", err)
				return 1
			}
			if lines == nil && !settled.Pending() {
				return 0
			}
		}
	}
}

func renderSearchHuman(out io.Writer, query string, res catalog.Result) {
	_, _ = fmt.Fprintf(out, "Query %q matched %d product(s)\n", query, len(res.Items))
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tQTY\tPRICE\tSOLD\tPROFIT\tMARGIN")
	for _, v := range res.Items {
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%.2f\t%d\t%.2f\t%.1f%%\n",
			v.Product.ID, v.Product.Name, v.Product.Category, v.Product.Quantity,
			v.Price, v.Metrics.TotalSold, v.Metrics.TotalProfit, v.Metrics.ProfitMarginPercent)
	}
	_ = tw.Flush()
	s := res.Summary
	_, _ = fmt.Fprintf(out, "Stock value %.2f, %d item(s), %d low stock, %d out of stock, average price %.2f\n",
		s.TotalValue, s.TotalItems, s.LowStockCount, s.OutOfStockCount, s.AveragePrice)
	p := res.Portfolio
	_, _ = fmt.Fprintf(out, "Revenue %.2f, profit %.2f (%.1f%%)\n", p.TotalRevenue, p.TotalProfit, p.ProfitMarginPercent)
}

// CategoriesCommand prints the category facets of the snapshot.
func (c *CatalogCLI) CategoriesCommand(ctx context.Context, stdout, stderr io.Writer) int {
	cats, err := c.service.Categories(ctx)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "categories: %v\n", err)
		return 1
	}
	for _, cat := range cats {
		_, _ = fmt.Fprintln(stdout, cat)
	}
	return 0
}
