package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/rizkyab/dicerita/internal/client/syncer"
)

// Status prints connectivity, queue depth and cache usage.
func (a *App) Status(ctx context.Context) error {
	res := a.facade.Status(ctx)
	if res.Err {
		report(res.Result)
		return nil
	}

	mode := "offline"
	if res.IsOnline {
		mode = "online"
	}
	printlnFn("mode:          ", mode)
	printlnFn("pending writes:", res.QueueLength)
	printlnFn("sync running:  ", res.SyncInProgress)
	printlnFn(fmt.Sprintf("image cache:    %d file(s), %.1f MB", res.Cache.Count, float64(res.Cache.TotalBytes)/(1024*1024)))
	if last, err := a.store.GetSetting(ctx, syncer.LastSyncSetting, "never"); err == nil {
		printlnFn("last sync:     ", last)
	}
	return nil
}

// Pending lists queued writes in the order they will sync.
func (a *App) Pending(ctx context.Context) error {
	res := a.facade.PendingOperations(ctx)
	report(res.Result)

	for _, op := range res.Operations {
		line := fmt.Sprintf("#%-4d %-14s %-7s enqueued %s attempts %d/%d",
			op.ID, op.Kind, op.Priority, op.EnqueuedAt.Format("2006-01-02 15:04"), op.AttemptCount, op.AttemptLimit)
		if op.LastError != "" {
			line += "  last error: " + op.LastError
		}
		printlnFn(line)
	}
	return nil
}

// Cancel withdraws one queued write by id.
func (a *App) Cancel(ctx context.Context) error {
	text, err := getSimpleText(a.reader, "Enter operation id", os.Stdout)
	if err != nil {
		return err
	}
	id, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		printlnFn("error: operation id must be a number")
		return nil
	}

	report(a.facade.CancelOperation(ctx, id))
	return nil
}

// Evict removes stale cached stories and images.
func (a *App) Evict(ctx context.Context) error {
	report(a.facade.EvictStale(ctx))
	return nil
}

// Clear wipes all local data after an explicit confirmation. Unsynced
// writes are lost too, so the prompt spells that out.
func (a *App) Clear(ctx context.Context) error {
	answer, err := getSimpleText(a.reader, "This deletes all local data including unsynced stories. Type 'yes' to continue", os.Stdout)
	if err != nil {
		return err
	}
	if answer != "yes" {
		printlnFn("aborted")
		return nil
	}

	res := a.facade.ClearAllData(ctx)
	report(res)
	if !res.Err {
		a.userName = ""
	}
	return nil
}
