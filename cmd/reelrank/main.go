// Copyright 2024 ReelRank Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/reelrank/reelrank/base/log"
	"github.com/reelrank/reelrank/cmd/version"
	"github.com/reelrank/reelrank/config"
	"github.com/reelrank/reelrank/dashboard"
	"github.com/reelrank/reelrank/recommend"
	"github.com/reelrank/reelrank/server"
	"github.com/reelrank/reelrank/trainer"
)

var rootCommand = &cobra.Command{
	Use:   "reelrank",
	Short: "ReelRank: a MovieLens movie recommender.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		debugMode, _ := cmd.Flags().GetBool("debug")
		log.SetLogger(cmd.Flags(), debugMode)
	},
}

var trainCommand = &cobra.Command{
	Use:   "train",
	Short: "Train the rating model and write serving artifacts.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig(cmd)
		tune, _ := cmd.Flags().GetBool("tune")
		if err := trainer.NewTrainer(cfg).Train(tune); err != nil {
			log.Logger().Fatal("failed to train", zap.Error(err))
		}
	},
}

var serveCommand = &cobra.Command{
	Use:   "serve",
	Short: "Serve recommendations over the REST API.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig(cmd)
		recommender, err := recommend.Open(cfg.Model.ModelPath(), cfg.Model.MoviesPath())
		if err != nil {
			log.Logger().Fatal("failed to load artifacts", zap.Error(err))
		}
		server.NewRestServer(recommender, cfg).StartHttpServer()
	},
}

var dashboardCommand = &cobra.Command{
	Use:   "dashboard",
	Short: "Serve the dashboard front-end.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig(cmd)
		s, err := dashboard.NewServer(cfg)
		if err != nil {
			log.Logger().Fatal("failed to create dashboard", zap.Error(err))
		}
		s.Start()
	},
}

var versionCommand = &cobra.Command{
	Use:   "version",
	Short: "Print the version of reelrank.",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Print(version.BuildInfo())
	},
}

func loadConfig(cmd *cobra.Command) *config.Config {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		cfg, err := config.LoadConfig(path)
		if err != nil {
			log.Logger().Fatal("failed to load config", zap.String("config", path), zap.Error(err))
		}
		return cfg
	}
	cfg := config.GetDefaultConfig()
	if err := cfg.Validate(); err != nil {
		log.Logger().Fatal("invalid default config", zap.Error(err))
	}
	return cfg
}

func init() {
	rootCommand.PersistentFlags().StringP("config", "c", "", "path of the TOML config file")
	rootCommand.PersistentFlags().Bool("debug", false, "use debug log mode")
	log.AddFlags(rootCommand.PersistentFlags())
	trainCommand.Flags().Bool("tune", false, "search hyper-parameters by TPE instead of grid search")
	rootCommand.AddCommand(trainCommand)
	rootCommand.AddCommand(serveCommand)
	rootCommand.AddCommand(dashboardCommand)
	rootCommand.AddCommand(versionCommand)
}

func main() {
	if err := rootCommand.Execute(); err != nil {
		log.Logger().Fatal("failed to execute", zap.Error(err))
	}
}
