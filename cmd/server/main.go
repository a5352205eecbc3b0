package main

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins for development
		return true
	},
}

var rootCmd = &cobra.Command{
	Use:   "server",
	Short: "Run admission control experiments on request and stream their progress",
	Long: `Run admission control experiments on request and stream their progress.

Clients connect to /ws and send {"type": "run", ...} messages; every admission
decision and finished job is streamed back, followed by a summary. Aggregate
counters are exported at /metrics.`,
	SilenceUsage: true,
	RunE:         func(cmd *cobra.Command, args []string) error { return serve() },
}

func init() {
	flags := rootCmd.Flags()
	flags.String("addr", ":8080", "Listen address")
	flags.String("data", "data", "Directory holding the request and forecast files")
	flags.String("log-level", "info", "Log level: debug, info, warn or error")
	flags.String("config", "", "Path to a YAML or JSON config file")
	if err := viper.BindPFlags(flags); err != nil {
		panic(err)
	}
}

func initConfig() error {
	viper.SetEnvPrefix("CUCUMBER")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	if path := viper.GetString("config"); path != "" {
		viper.SetConfigFile(path)
		if err := viper.ReadInConfig(); err != nil {
			return errors.Wrapf(err, "read config %s", path)
		}
	}
	level, err := log.ParseLevel(viper.GetString("log-level"))
	if err != nil {
		return err
	}
	log.SetLevel(level)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	return nil
}

func handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Errorf("Error upgrading connection: %v", err)
		return
	}
	defer conn.Close()

	logger := log.WithField("client", r.RemoteAddr)
	logger.Info("Client connected")
	s := newSession(&safeConn{Conn: conn}, viper.GetString("data"), logger)
	s.sendStatus()

	// Handle messages from client
	for {
		var msg ClientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Errorf("Error reading message: %v", err)
			}
			break
		}
		logger.Debugf("Received command: %s", msg.Type)

		switch msg.Type {
		case "run":
			if !s.start() {
				s.sendError(errors.New("an experiment is already running"))
				continue
			}
			go s.run(msg)
		case "status":
			s.sendStatus()
		default:
			s.sendError(errors.Errorf("unknown command %q", msg.Type))
		}
	}

	s.close()
	logger.Info("Client disconnected")
}

func serveIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, "cucumber admission control simulator")
	fmt.Fprintln(w, "  /ws            run experiments (websocket)")
	fmt.Fprintln(w, "  /metrics       prometheus metrics")
	fmt.Fprintln(w, "  /quitquitquit  shut down")
}

func quitHandler(w http.ResponseWriter, r *http.Request) {
	log.Info("Shutdown requested via /quitquitquit")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "Server shutting down...")

	go func() {
		time.Sleep(100 * time.Millisecond)
		log.Info("Server stopped")
		os.Exit(0)
	}()
}

func newMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", serveIndex)
	mux.HandleFunc("/ws", handleWebSocket)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/quitquitquit", quitHandler)
	return mux
}

func serve() error {
	if err := initConfig(); err != nil {
		return err
	}
	initPrometheusMetrics()

	addr := viper.GetString("addr")
	log.Infof("Server starting on http://localhost%s", addr)
	log.Infof("WebSocket endpoint: ws://localhost%s/ws", addr)
	return http.ListenAndServe(addr, newMux())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}
