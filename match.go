package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/pkg/errors"
	"github.com/umdb-app/umdb/services/matching"
	"github.com/urfave/cli"
)

func makeMatchCMD() cli.Command {
	matchCMD := cli.Command{
		Name:  "match",
		Usage: "Searches external catalogs and prints ranked candidates",
		Action: func(c *cli.Context) error {
			return runMatch(c)
		},
	}
	configureMatch(&matchCMD)
	return matchCMD
}

func configureMatch(c *cli.Command) {
	c.Flags = append(c.Flags,
		cli.StringFlag{
			Name:  "title",
			Usage: "movie title",
		},
		cli.IntFlag{
			Name:  "year",
			Usage: "release year",
		},
	)
	c.Flags = configureSources(c.Flags)
}

func runMatch(c *cli.Context) error {
	title := c.String("title")
	if title == "" {
		return errors.New("title is required")
	}
	var year *int
	if c.IsSet("year") {
		y := c.Int("year")
		year = &y
	}

	// Setting Finder
	reg := makeRegistry(c, http.DefaultClient)
	if len(reg.Configured()) == 0 {
		return errors.New("no catalog is configured")
	}
	f := makeFinder(c, reg)

	res, err := f.FindMatches(context.Background(), title, year)
	if err != nil {
		return err
	}
	fmt.Println(renderMatches(res))
	return nil
}

func renderMatches(res []matching.ScoredCandidate) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Confidence", "Source", "ID", "Title", "Year"})
	for _, r := range res {
		y := ""
		if r.Year != nil {
			y = fmt.Sprintf("%d", *r.Year)
		}
		tw.AppendRow(table.Row{r.Confidence, r.Source, r.ExternalID, r.Title, y})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 5, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}
