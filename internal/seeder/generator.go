// Package seeder generates synthetic proxy access logs for demos and tests.
package seeder

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
)

// Summary describes what Generate wrote.
type Summary struct {
	Lines     int
	Malformed int
	Chunked   int
}

// Valid is the number of lines a parser will keep.
func (s Summary) Valid() int {
	return s.Lines - s.Malformed
}

// Generator produces access log lines in the 10-field proxy format.
type Generator struct {
	cfg     Config
	faker   *gofakeit.Faker
	clients []string
	users   []string
}

var (
	cacheResults = []string{"TCP_MISS", "TCP_HIT", "TCP_REFRESH_HIT", "TCP_MEM_HIT", "TCP_DENIED", "TCP_TUNNEL"}
	contentTypes = []string{"text/html", "text/css", "image/png", "image/gif", "application/json", "application/javascript", "-"}
)

// NewGenerator validates cfg and prepares the client pool. A zero Seed picks
// a random one; a zero Start means now minus Spread.
func NewGenerator(cfg Config) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Start.IsZero() {
		cfg.Start = time.Now().Add(-cfg.Spread)
	}

	faker := gofakeit.New(cfg.Seed)
	g := &Generator{cfg: cfg, faker: faker}

	seen := make(map[string]bool)
	for len(g.clients) < cfg.Clients {
		ip := faker.IPv4Address()
		if seen[ip] {
			continue
		}
		seen[ip] = true
		g.clients = append(g.clients, ip)
	}
	for range max(1, cfg.Clients/2) {
		g.users = append(g.users, strings.ToLower(faker.Username()))
	}

	return g, nil
}

// Generate writes cfg.Count lines to w.
func (g *Generator) Generate(w io.Writer) (Summary, error) {
	bw := bufio.NewWriter(w)
	var sum Summary

	for i := 0; i < g.cfg.Count; i++ {
		line, malformed, chunked := g.line(i)
		if _, err := bw.WriteString(line + "\n"); err != nil {
			return sum, err
		}
		sum.Lines++
		if malformed {
			sum.Malformed++
		} else if chunked {
			sum.Chunked++
		}
	}

	if err := bw.Flush(); err != nil {
		return sum, err
	}
	return sum, nil
}

func (g *Generator) line(i int) (line string, malformed, chunked bool) {
	f := g.faker
	ts := g.timestamp(i)

	status := f.HTTPStatusCodeSimple()
	method := f.HTTPMethod()
	url := f.URL()
	if f.Float64Range(0, 1) < 0.2 {
		method, url = "CONNECT", f.DomainName()+":443"
	}

	size := int64(f.Number(200, 250000))
	if f.Float64Range(0, 1) < g.cfg.ChunkedRatio {
		size, chunked = -1, true
	}

	user := "-"
	if f.Bool() {
		user = f.RandomString(g.users)
	}

	fields := []string{
		fmt.Sprintf("%d.%03d", ts.Unix(), ts.Nanosecond()/int(time.Millisecond)),
		fmt.Sprintf("%6d", f.Number(1, 60000)),
		g.client(),
		fmt.Sprintf("%s/%03d", f.RandomString(cacheResults), status),
		fmt.Sprintf("%d", size),
		method,
		url,
		user,
		"DIRECT/" + f.IPv4Address(),
		f.RandomString(contentTypes),
	}

	if f.Float64Range(0, 1) < g.cfg.MalformedRatio {
		return g.corrupt(fields), true, false
	}
	return strings.Join(fields, " "), false, chunked
}

// corrupt breaks a line so that a parser must reject it, either structurally
// or through an unparseable numeric column.
func (g *Generator) corrupt(fields []string) string {
	f := g.faker
	switch f.Number(0, 2) {
	case 0:
		drop := f.Number(0, len(fields)-1)
		fields = slices.Delete(fields, drop, drop+1)
	case 1:
		fields = append(fields, f.Word())
	default:
		col := []int{0, 1, 4}[f.Number(0, 2)]
		fields[col] = f.LetterN(3)
	}
	return strings.Join(fields, " ")
}

// timestamp spreads lines evenly over the window with +-40% jitter.
func (g *Generator) timestamp(i int) time.Time {
	if g.cfg.Spread <= 0 || g.cfg.Count == 0 {
		return g.cfg.Start
	}

	base := float64(g.cfg.Spread) / float64(g.cfg.Count)
	jitter := (g.faker.Float64Range(0, 2) - 1) * base * 0.4
	offset := time.Duration(float64(i)*base + jitter)
	offset = max(0, min(offset, g.cfg.Spread))

	return g.cfg.Start.Add(offset)
}

// client picks from the pool with a skew toward the front so the most and
// least frequent clients are distinct.
func (g *Generator) client() string {
	u := g.faker.Float64Range(0, 1)
	idx := int(math.Floor(float64(len(g.clients)) * u * u))
	return g.clients[min(idx, len(g.clients)-1)]
}
