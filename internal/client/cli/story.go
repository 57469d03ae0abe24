package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const listPageSize = 10

// List prints a page of stories, from the network when possible and from
// the local cache otherwise.
func (a *App) List(ctx context.Context) error {
	pageText, err := getSimpleText(a.reader, "Page (empty for 1)", os.Stdout)
	if err != nil {
		return err
	}
	page := 1
	if pageText != "" {
		if page, err = strconv.Atoi(pageText); err != nil {
			printlnFn("error: page must be a number")
			return nil
		}
	}

	res := a.facade.ListStories(ctx, page, listPageSize)
	report(res.Result)

	for _, s := range res.Stories {
		desc := s.Description
		if len(desc) > 60 {
			desc = desc[:57] + "..."
		}
		desc = strings.ReplaceAll(desc, "\n", " ")
		printlnFn(fmt.Sprintf("%-38s %-16s %s  %s", s.ID, s.Author, s.CreatedAt.Format("2006-01-02 15:04"), desc))
	}
	if res.TotalPages > 0 {
		printlnFn(fmt.Sprintf("page %d of %d", res.Page, res.TotalPages))
	}
	return nil
}

// Show prints one story in full and resolves its photo into the local image
// cache, printing the path of the cached file.
func (a *App) Show(ctx context.Context) error {
	id, err := getSimpleText(a.reader, "Enter story id", os.Stdout)
	if err != nil {
		return err
	}

	res := a.facade.GetStory(ctx, id)
	report(res.Result)
	if res.Story == nil {
		return nil
	}

	s := res.Story
	printlnFn("Author: ", s.Author)
	printlnFn("Created:", s.CreatedAt.Format("2006-01-02 15:04:05"))
	if s.Lat != nil && s.Lon != nil {
		printlnFn(fmt.Sprintf("Location: %.5f, %.5f", *s.Lat, *s.Lon))
	}
	printlnFn(s.Description)

	if s.PhotoURL != "" {
		h, err := a.images.Resolve(ctx, s.PhotoURL, s.ID)
		if err != nil {
			printlnFn("photo unavailable:", err.Error())
		} else if h == nil {
			printlnFn("photo not cached (offline)")
		} else {
			printlnFn("photo:", h.Path)
			a.images.Release(h)
		}
	}
	return nil
}

// Add collects a new story interactively and publishes it, queueing the
// write locally when the network is down.
func (a *App) Add(ctx context.Context) error {
	description, err := GetMultiline(a.reader, "Describe your story", os.Stdout)
	if err != nil {
		return err
	}

	photoPath, err := getSimpleText(a.reader, "Path to photo file", os.Stdout)
	if err != nil {
		return err
	}
	photo, err := os.ReadFile(photoPath)
	if err != nil {
		printlnFn("error reading photo:", err.Error())
		return nil
	}

	lat, lon, err := a.askLocation()
	if err != nil {
		return err
	}

	res := a.facade.AddStory(ctx, description, photo, filepath.Base(photoPath), lat, lon)
	report(res.Result)
	if res.Queued {
		printlnFn("local id:", res.ID)
	}
	return nil
}

func (a *App) askLocation() (*float64, *float64, error) {
	text, err := getSimpleText(a.reader, "Location lat,lon (empty to skip)", os.Stdout)
	if err != nil {
		return nil, nil, err
	}
	if text == "" {
		return nil, nil, nil
	}

	parts := strings.SplitN(text, ",", 2)
	if len(parts) != 2 {
		printlnFn("expected lat,lon; skipping location")
		return nil, nil, nil
	}
	lat, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lon, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err1 != nil || err2 != nil {
		printlnFn("could not parse coordinates; skipping location")
		return nil, nil, nil
	}
	return &lat, &lon, nil
}
