/*
 *
 *  * Licensed to the Apache Software Foundation (ASF) under one or more
 *  * contributor license agreements.  See the NOTICE file distributed with
 *  * this work for additional information regarding copyright ownership.
 *  * The ASF licenses this file to You under the Apache License, Version 2.0
 *  * (the "License"); you may not use this file except in compliance with
 *  * the License.  You may obtain a copy of the License at
 *  *
 *  *     http://www.apache.org/licenses/LICENSE-2.0
 *  *
 *  * Unless required by applicable law or agreed to in writing, software
 *  * distributed under the License is distributed on an "AS IS" BASIS,
 *  * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *  * See the License for the specific language governing permissions and
 *  * limitations under the License.
 *
 */

package main

import (
	"context"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/pingcap/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/urfave/cli"

	"github.com/IceFireDB/IceFireDB-Challenge/pkg/config"
	"github.com/IceFireDB/IceFireDB-Challenge/pkg/monitor"
	"github.com/IceFireDB/IceFireDB-Challenge/server"
	"github.com/IceFireDB/IceFireDB-Challenge/utils"
)

// BuildDate: Binary file compilation time
// BuildVersion: Binary compiled GIT version
var (
	BuildDate    string
	BuildVersion string
)

func main() {
	app := cli.NewApp()
	app.Name = "IceFireDB-Challenge"
	app.Version = BuildVersion
	app.Description = "Streaming JSON ingestion service with the challenge HTTP routes."
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config,c",
			Usage: "config file",
			Value: "config/config.yaml",
		},
		cli.StringFlag{
			Name:  "log,l",
			Usage: "log level (debug, info, warn, error), overrides log.level",
		},
		cli.StringFlag{
			Name:  "env",
			Usage: "dotenv file loaded before the config, ignored when missing",
			Value: ".env",
		},
	}
	app.Before = initConfig
	app.Action = start
	err := app.Run(os.Args)
	if err != nil {
		logrus.Errorf("failed to run application: %v", err)
		os.Exit(1)
	}
}

func start(c *cli.Context) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	wg := sync.WaitGroup{}
	errSignal := make(chan error, 1)

	conf := config.Get()
	s, err := server.New(conf)
	if err != nil {
		return err
	}

	if conf.PrometheusExporter.Enable {
		monitor.RunPrometheusExporter(s.Metrics, &conf.PrometheusExporter)
		logrus.Infof("prometheus exporter listening on %s", conf.PrometheusExporter.Address)
	}

	wg.Add(1)
	utils.GoWithRecover(func() {
		defer wg.Done()
		s.Run(ctx, errSignal)
	}, nil)
	if err = <-errSignal; err != nil {
		return err
	}
	logrus.Infof("IceFireDB-Challenge %s (built %s) started", BuildVersion, BuildDate)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGHUP, syscall.SIGQUIT, syscall.SIGTERM, syscall.SIGINT)
	for sig := range sigs {
		switch sig {
		case syscall.SIGQUIT, syscall.SIGTERM, syscall.SIGINT:
			logrus.Info("Received shutdown signal, initiating graceful shutdown...")
			cancel()

			ok := make(chan struct{})
			go func() {
				wg.Wait()
				close(ok)
			}()

			select {
			case <-ok:
				logrus.Info("All goroutines have gracefully shut down.")
			case <-time.After(conf.Server.ShutdownTimeout + time.Second):
				logrus.Warn("Context deadline exceeded, forcing shutdown.")
			}
			return nil

		case syscall.SIGHUP:
			logrus.Info("Received SIGHUP signal, reload is not supported.")
		}
	}

	return nil
}

func initConfig(c *cli.Context) error {
	if err := godotenv.Load(c.String("env")); err != nil && !os.IsNotExist(errors.Cause(err)) {
		return errors.Annotatef(err, "load %s", c.String("env"))
	}

	v := viper.GetViper()
	config.SetDefaults(v)
	config.BindEnv(v)

	// Read configuration file configuration
	v.SetConfigFile(c.String("config"))
	if err := v.ReadInConfig(); err != nil {
		return errors.Annotatef(err, "read config %s", c.String("config"))
	}
	if level := c.String("log"); level != "" {
		v.Set("log.level", level)
	}

	// Map configuration file content to structure
	if err := config.InitConfig(); err != nil {
		return err
	}
	if err := initLog(config.Get().Log); err != nil {
		return err
	}
	debug()

	return nil
}

func initLog(c config.LogS) error {
	level, err := logrus.ParseLevel(c.Level)
	if err != nil {
		return errors.Annotate(err, "log.level")
	}
	logrus.SetLevel(level)

	switch c.Format {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	default:
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	switch c.OutPut {
	case "", "stdout":
		logrus.SetOutput(os.Stdout)
	case "stderr":
		logrus.SetOutput(os.Stderr)
	default:
		f, err := os.OpenFile(c.OutPut, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return errors.Annotatef(err, "open log file %s", c.OutPut)
		}
		logrus.SetOutput(f)
	}
	return nil
}

func debug() {
	// Open pprof
	if config.Get().PprofDebug.Enable {
		utils.GoWithRecover(func() {
			addr := strconv.Itoa(int(config.Get().PprofDebug.Port))
			_ = http.ListenAndServe(":"+addr, nil)
		}, nil)
	}
}
