package actions

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/relloyd/totes/logger"
)

type WebServerResponse uint32

const (
	Okay WebServerResponse = iota + 1
	Error
	Busy
)

func (w WebServerResponse) MarshalJSON() ([]byte, error) {
	var retval string
	switch w {
	case Okay:
		retval = "ok"
	case Error:
		retval = "error"
	case Busy:
		retval = "busy"
	default:
		err := fmt.Errorf("unhandled WebServerResponse value in MarshalJSON() conversion")
		return nil, err
	}
	return json.Marshal(retval)
}

type ResponseSimple struct {
	ServerStatus WebServerResponse `json:"status"`
}

type ResponseStage struct {
	Status  WebServerResponse `json:"status"`
	Message string            `json:"message,omitempty"`
	Result  *StageResult      `json:"result,omitempty"`
}

type ResponseWatermark struct {
	Status    WebServerResponse `json:"status"`
	Message   string            `json:"message,omitempty"`
	Watermark *WatermarkResult  `json:"watermark,omitempty"`
}

type ResponseCache struct {
	Status  WebServerResponse `json:"status"`
	Message string            `json:"message,omitempty"`
	Cache   *CacheResult      `json:"cache,omitempty"`
}

func GetHandlerHealth(log logger.Logger) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		writeHeader(w, http.StatusOK)
		respond(log, w, ResponseSimple{ServerStatus: Okay})
	}
}

func GetHandlerStopServer(log logger.Logger, chanStop chan string) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		writeHeader(w, http.StatusOK)
		select {
		case chanStop <- "stop":
			log.Info("Stop signal sent")
		default: // a stop is already pending.
		}
		respond(log, w, ResponseSimple{ServerStatus: Okay})
	}
}

// GetHandlerRunStage runs stage synchronously and responds with its statistics.
// It responds with 409 Conflict while another stage is running.
func GetHandlerRunStage(log logger.Logger, runner *stageRunner, stage string) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		res, ok, err := runner.run(r.Context(), stage)
		if !ok { // if another stage holds the runner...
			log.Info("HTTP request to run stage ", stage, " rejected while another stage is running.")
			writeHeader(w, http.StatusConflict)
			respond(log, w, ResponseStage{Status: Busy, Message: "a pipeline stage is already running"})
			return
		}
		if err != nil {
			logAndRespond(log, err, w, http.StatusInternalServerError,
				ResponseStage{Status: Error, Message: err.Error(), Result: res})
			return
		}
		writeHeader(w, http.StatusOK)
		respond(log, w, ResponseStage{Status: Okay, Result: res})
	}
}

func GetHandlerWatermark(log logger.Logger, newPipeline func() *PipelineConfig) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		role, err := BucketRole(vars["role"])
		if err != nil {
			logAndRespond(log, err, w, http.StatusBadRequest, ResponseWatermark{Status: Error, Message: err.Error()})
			return
		}
		wm, err := GetWatermark(newPipeline(), role)
		if err != nil {
			logAndRespond(log, err, w, http.StatusInternalServerError, ResponseWatermark{Status: Error, Message: err.Error()})
			return
		}
		writeHeader(w, http.StatusOK)
		respond(log, w, ResponseWatermark{Status: Okay, Watermark: wm})
	}
}

func GetHandlerCache(log logger.Logger, newPipeline func() *PipelineConfig) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := ListCache(newPipeline())
		if err != nil {
			logAndRespond(log, err, w, http.StatusInternalServerError, ResponseCache{Status: Error, Message: err.Error()})
			return
		}
		writeHeader(w, http.StatusOK)
		respond(log, w, ResponseCache{Status: Okay, Cache: c})
	}
}

func writeHeader(w http.ResponseWriter, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
}

// logAndRespond will log the error, write status and r to w.
func logAndRespond(log logger.Logger, err error, w http.ResponseWriter, status int, r interface{}) {
	log.Error(err)
	writeHeader(w, status)
	respond(log, w, r)
}

// respond will marshal i to a string and write it to w.
func respond(log logger.Logger, w http.ResponseWriter, i interface{}) {
	j, err := json.MarshalIndent(i, "", "  ")
	if err != nil {
		log.Panic(err)
	}
	_, err = fmt.Fprint(w, string(j))
	if err != nil {
		log.Panic(err)
	}
}
