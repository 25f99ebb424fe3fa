package http

import (
	"encoding/json"
	"io"
	"net/http"

	"go.uber.org/zap"

	"sqs-event-poller/internal/invoker"
	"sqs-event-poller/internal/logger"
)

// NewEchoConsumer serves the invoke route and logs every received event. It
// stands in for a function runtime when trying the poller locally.
func NewEchoConsumer() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /2015-03-31/functions/{function}/invocations", func(w http.ResponseWriter, r *http.Request) {
		function := r.PathValue("function")
		bodyBytes, err := io.ReadAll(r.Body)
		if err != nil {
			logger.Error("Error reading body", zap.Error(err))
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		var ev invoker.Event
		if err := json.Unmarshal(bodyBytes, &ev); err != nil {
			logger.Warn("Invalid event", zap.String("function", function), zap.Error(err))
			w.Header().Set(invoker.FunctionErrorHeader, "Unhandled")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"errorMessage":"invalid event"}`))
			return
		}

		for _, rec := range ev.Records {
			logger.Info("Event received",
				zap.String("function", function),
				zap.String("messageId", rec.MessageID),
				zap.String("eventSourceARN", rec.EventSourceARN),
				zap.String("body", rec.Body))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	return mux
}
