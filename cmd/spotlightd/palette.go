package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/spotlight/internal/session"
	"github.com/Adithya-Monish-Kumar-K/spotlight/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/spotlight/pkg/metrics"
)

// runPalette drives a session from line-oriented input. Each line replaces
// the query; ":N" opens the Nth result of the last listing; an empty line
// clears the query.
func runPalette(ctx context.Context, cfg config.SessionConfig, s session.Searcher, m *metrics.Metrics, in io.Reader, out io.Writer) {
	var mu sync.Mutex
	ctrl := session.New(s,
		session.WithDebounce(cfg.Debounce),
		session.WithLimit(cfg.Limit),
		session.WithMac(cfg.Mac),
		session.WithMetrics(m),
		session.WithNavigator(func(path string) {
			mu.Lock()
			defer mu.Unlock()
			fmt.Fprintf(out, "-> %s\n", path)
		}),
	)
	defer ctrl.Close()

	ctrl.OnChange(func() {
		if ctrl.Loading() || !ctrl.Open() {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		printGroups(out, ctrl.Query(), ctrl.Groups())
	})
	ctrl.SetOpen(true)

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if n, isPick := strings.CutPrefix(line, ":"); isPick {
				pick(ctrl, n)
				ctrl.SetOpen(true)
				continue
			}
			ctrl.SetQuery(line)
		}
	}
}

func pick(ctrl *session.Controller, n string) {
	i, err := strconv.Atoi(strings.TrimSpace(n))
	if err != nil {
		return
	}
	// Listings are numbered in grouped order.
	for _, g := range ctrl.Groups() {
		if i <= len(g.Docs) {
			if i >= 1 {
				ctrl.GoTo(g.Docs[i-1])
			}
			return
		}
		i -= len(g.Docs)
	}
}

func printGroups(out io.Writer, query string, groups []session.Group) {
	if strings.TrimSpace(query) == "" {
		return
	}
	if len(groups) == 0 {
		fmt.Fprintf(out, "no results for %q\n", query)
		return
	}
	n := 0
	for _, g := range groups {
		fmt.Fprintf(out, "%s\n", g.Heading)
		for _, d := range g.Docs {
			n++
			fmt.Fprintf(out, "  %2d. %s  %s\n", n, d.Title, d.Subtitle)
		}
	}
}
