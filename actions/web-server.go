package actions

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/relloyd/totes/constants"
	"github.com/relloyd/totes/helper"
	"github.com/relloyd/totes/logger"
)

type WebServerConfig struct {
	Log         logger.Logger          `errorTxt:"logger" mandatory:"yes"`
	Addr        string                 `errorTxt:"listen address" mandatory:"yes"`
	NewPipeline func() *PipelineConfig `errorTxt:"pipeline factory" mandatory:"yes"`
}

// stageRunner allows one pipeline stage to run at a time.
type stageRunner struct {
	busy        int32
	newPipeline func() *PipelineConfig
}

// run executes stage unless another is in progress, in which case ok is false.
func (s *stageRunner) run(ctx context.Context, stage string) (res *StageResult, ok bool, err error) {
	if !atomic.CompareAndSwapInt32(&s.busy, 0, 1) {
		return nil, false, nil
	}
	defer atomic.StoreInt32(&s.busy, 0)
	res, err = RunStage(ctx, s.newPipeline(), stage)
	return res, true, err
}

func RunWebServer(web *WebServerConfig) error {
	if web == nil {
		return errors.New("nil pointer to web server config supplied")
	}
	// Check if we have valid input params.
	err := helper.ValidateStructIsPopulated(web)
	if err != nil {
		return err
	}
	// Start the web server.
	srv, chanStopServer := runServer(web)
	// Block & wait for completion.
	return waitForServer(web.Log, srv, chanStopServer)
}

// newRouter returns the routes served by the trigger server.
func newRouter(web *WebServerConfig, chanStopServer chan string) *mux.Router {
	log := web.Log
	runner := &stageRunner{newPipeline: web.NewPipeline}
	r := mux.NewRouter()
	r.Path("/health").Methods(http.MethodGet).HandlerFunc(GetHandlerHealth(log))
	r.Path("/stop").Methods(http.MethodPost).HandlerFunc(GetHandlerStopServer(log, chanStopServer))
	r.Path("/ingest").Methods(http.MethodPost).HandlerFunc(GetHandlerRunStage(log, runner, constants.StageIngest))
	r.Path("/transform").Methods(http.MethodPost).HandlerFunc(GetHandlerRunStage(log, runner, constants.StageTransform))
	r.Path("/load").Methods(http.MethodPost).HandlerFunc(GetHandlerRunStage(log, runner, constants.StageLoad))
	r.Path("/run").Methods(http.MethodPost).HandlerFunc(GetHandlerRunStage(log, runner, constants.StageAll))
	r.Path("/watermark/{role}").Methods(http.MethodGet).HandlerFunc(GetHandlerWatermark(log, web.NewPipeline))
	r.Path("/cache").Methods(http.MethodGet).HandlerFunc(GetHandlerCache(log, web.NewPipeline))
	return r
}

// runServer starts a web server and returns:
// 1) the server; and
// 2) a channel that can be used to stop the web server
func runServer(web *WebServerConfig) (*http.Server, chan string) {
	log := web.Log
	chanStopServer := make(chan string, 1)
	// Configure HTTP server.
	srv := &http.Server{
		Addr:         web.Addr,
		WriteTimeout: time.Minute * 15, // stages respond once they complete.
		ReadTimeout:  time.Second * 15,
		IdleTimeout:  time.Second * 60,
		Handler:      newRouter(web, chanStopServer),
	}
	// Run HTTP server non-blocking.
	go func() {
		if err := srv.ListenAndServe(); err != nil {
			if err == http.ErrServerClosed {
				log.Info(err)
			} else {
				log.Panic(err)
			}
		}
	}()
	log.Info(fmt.Sprintf("Listening on http://%v", web.Addr))
	return srv, chanStopServer
}

func waitForServer(log logger.Logger, srv *http.Server, chanStopServer chan string) error {
	// Block & wait for shutdown signals.
	// Accept graceful shutdowns when quit via SIGINT (Ctrl+C)
	// SIGKILL, SIGQUIT or SIGTERM (Ctrl+\) will not be caught.
	chanOS := make(chan os.Signal, 1)
	signal.Notify(chanOS, os.Interrupt) // request signals be sent to chanOS.
	select {
	case <-chanStopServer:
	case <-chanOS:
	}
	fmt.Println() // print new line char for clean looking CLI.
	log.Info("Shutting down web server...")
	// Shutdown waits for a running stage to respond until the deadline.
	wait := time.Second * 15
	ctx, cancel := context.WithTimeout(context.Background(), wait)
	defer cancel()
	return srv.Shutdown(ctx)
}
