// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package install provides the installation scheduler.
//
// A Scheduler moves one Session at a time through the stages
//
//	Idle -> Preparing -> CreatingDirectories -> InstallingComponents ->
//	Registering -> CreatingShortcuts -> Optimizing -> Completed
//
// with Cancelled and Error as side exits. Each stage owns a fixed share of
// the overall 0-100 range (Weights); InstallingComponents splits its share
// evenly across the selected components.
//
// Before Preparing the scheduler requires the last hardware report to meet
// the minimum on the gate attributes and the selection to cover every
// required component and its dependencies.
//
// # Suspension Points
//
// Every stage boundary and every component increment passes through the
// Pacer and a cancellation check. Session.Cancel takes effect at the next
// check; once it returns no hook fires for that session.
//
// # Usage
//
//	sched, _ := install.NewScheduler(cat, profiler)
//	sess, _ := sched.NewSession(names, target, install.Hooks{
//		OnProgress: func(p int, label string) { fmt.Println(p, label) },
//	})
//	if err := sched.Run(ctx, sess); errors.Is(err, errs.ErrMissingDependency) {
//		// retry failed components, then sched.Resume(ctx, sess)
//	}
package install
