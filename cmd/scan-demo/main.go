// Copyright 2023 The Parascan Authors
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not
// use this file except in compliance with the License. You may obtain a copy of
// the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the
// License for the specific language governing permissions and limitations under
// the License.

// Command scan-demo drives a scan.Forest through synthetic rounds: it
// admits a sliding window of base data and answers every job the scheduler
// exposes with a synthetic external "prover" (identity on base data, sum on
// merges), logging every emitted result and exposing a Prometheus
// /metrics endpoint, the same shape cmd/flow-dps-indexer drives the mapper
// state machine.
package main

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/alvalor-labs/parascan/metrics"
	"github.com/alvalor-labs/parascan/scan"
)

func main() {

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)

	var (
		flagMaxBaseJobs uint32
		flagDelay       uint32
		flagRounds      uint64
		flagInterval    time.Duration
		flagMetrics     string
		flagLog         string
	)

	pflag.Uint32VarP(&flagMaxBaseJobs, "max-base-jobs", "m", 8, "maximum base jobs per tree, must be a power of two")
	pflag.Uint32VarP(&flagDelay, "delay", "d", 2, "rounds of scheduling slack between trees")
	pflag.Uint64VarP(&flagRounds, "rounds", "r", 0, "number of rounds to run, 0 for unbounded")
	pflag.DurationVarP(&flagInterval, "interval", "i", 0, "pause between rounds")
	pflag.StringVarP(&flagMetrics, "metrics", "a", ":9090", "address to expose /metrics on")
	pflag.StringVarP(&flagLog, "log", "l", "info", "log output level")

	pflag.Parse()

	zerolog.TimestampFunc = func() time.Time { return time.Now().UTC() }
	log := zerolog.New(os.Stderr).With().Timestamp().Logger().Level(zerolog.InfoLevel)
	level, err := zerolog.ParseLevel(flagLog)
	if err != nil {
		log.Fatal().Err(err).Msg("could not parse log level")
	}
	log = log.Level(level)

	cfg := scan.Config{MaxBaseJobs: flagMaxBaseJobs, Delay: flagDelay}
	state, err := scan.Empty[uint64, uint64](cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("could not initialize scan state")
	}

	recorder := metrics.NewRecorder()
	server := metrics.NewServer(log, flagMetrics)

	done := make(chan struct{})
	go func() {
		defer close(done)
		runRounds(log, recorder, state, flagRounds, flagInterval)
	}()

	go func() {
		log.Info().Str("address", flagMetrics).Msg("metrics server starting")
		if err := server.Start(); err != nil {
			log.Error().Err(err).Msg("metrics server stopped with error")
		}
	}()

	select {
	case <-sig:
		log.Info().Msg("scan-demo stopping")
	case <-done:
		log.Info().Msg("scan-demo finished its rounds")
	}
	go func() {
		<-sig
		log.Warn().Msg("forcing exit")
		os.Exit(1)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		log.Error().Err(err).Msg("could not stop metrics server")
	}

	os.Exit(0)
}

// runRounds drives the synthetic round loop of Scenario 1: round i admits
// data [i, i+1, ..., i+max_base_jobs-1], and every job the scheduler
// exposes for the next update is answered by a synthetic prover that
// returns the base datum itself for a base job, and the sum of the two
// children for a merge job.
func runRounds(log zerolog.Logger, recorder *metrics.Recorder, state *scan.Forest[uint64, uint64], rounds uint64, interval time.Duration) {
	for i := uint64(0); rounds == 0 || i < rounds; i++ {
		data := make([]uint64, state.FreeSpace())
		for k := range data {
			data[k] = i + uint64(k)
		}

		exposed := state.JobsForNextUpdate(len(data))
		completed := make([]uint64, 0, len(exposed))
		for _, job := range exposed {
			switch job.Kind {
			case scan.JobBase:
				completed = append(completed, job.Base)
			case scan.JobMerge:
				completed = append(completed, job.Left+job.Right)
			}
		}

		emitted, err := state.Update(data, completed)
		if err != nil {
			recorder.RoundFailed()
			log.Error().Err(err).Uint64("round", i).Msg("round failed")
			continue
		}

		pending := len(state.NextJobs())
		recorder.RoundApplied(len(data), len(completed), emitted != nil, pending, state.Len(), state.CurrentJobSequenceNumber())

		if emitted != nil {
			result := state.LastEmittedResult()
			log.Info().Uint64("round", i).Uint64("value", *emitted).Ints64("data", toInt64(result.Data)).Msg("emitted result")
		}

		if interval > 0 {
			time.Sleep(interval)
		}
	}
}

func toInt64(data []uint64) []int64 {
	out := make([]int64, len(data))
	for i, d := range data {
		out[i] = int64(d)
	}
	return out
}
