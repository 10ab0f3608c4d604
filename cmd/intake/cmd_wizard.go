package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"virtualcare/cmd/intake/ui"
	"virtualcare/cmd/intake/wizard"
	"virtualcare/internal/analytics"
	"virtualcare/internal/catalog"
	"virtualcare/internal/challenge"
	"virtualcare/internal/imaging"
	"virtualcare/internal/journal"
	"virtualcare/internal/logging"
	"virtualcare/internal/sequencer"
	"virtualcare/internal/submission"

	"go.uber.org/zap"
)

// runWizard wires the collaborators and runs the interactive questionnaire.
func runWizard(ctx context.Context) error {
	log := logging.Get(logging.CategoryBoot)

	cat, err := catalog.Load(cfg.Wizard.Catalog)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	coll := analytics.New(cfg.Analytics, 10*time.Second)

	var recorder submission.Recorder
	if cfg.Journal.Path != "" {
		store, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			// The wizard still works without a journal.
			log.Warn("journal unavailable", zap.String("path", cfg.Journal.Path), zap.Error(err))
		} else {
			defer store.Close()
			recorder = store
		}
	}

	sub := submission.New(
		submission.NewClient(cfg),
		imaging.DefaultPipeline(),
		coll,
		recorder,
		submission.OptionsFromConfig(cfg),
	)

	startDir, _ := os.Getwd()
	m, err := wizard.New(ctx, wizard.Deps{
		Catalog:   cat,
		Submitter: sub,
		Analytics: coll,
		Challenge: challenge.NewArithmetic(uint64(time.Now().UnixNano())),
		Styles:    ui.NewStyles(ui.ThemeFor(cfg.Wizard.Theme)),
	}, wizard.Options{
		Sequencer: sequencer.Options{
			ScrollDelay: cfg.GetScrollDelay(),
			FocusDelay:  cfg.GetFocusDelay(),
		},
		NoticeTTL: cfg.GetNoticeTTL(),
		Page:      cfg.Analytics.Page,
		StartDir:  startDir,
	})
	if err != nil {
		return fmt.Errorf("failed to build wizard: %w", err)
	}

	_, noAnalytics := coll.(analytics.Nop)
	log.Info("wizard starting", zap.Int("steps", cat.Len()), zap.Bool("analytics", !noAnalytics))
	final, err := wizard.Run(ctx, m)

	// Let an in-flight error report finish before exiting.
	sub.Wait()
	log.Info("wizard finished", zap.Int("screen", int(final.Screen())))
	return err
}
