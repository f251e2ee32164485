package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lifechain.ai/internal/chain"
	"lifechain.ai/internal/config"
	"lifechain.ai/internal/gateway"
	"lifechain.ai/internal/persistence/journal"
	"lifechain.ai/internal/transport/api"
	"lifechain.ai/internal/transport/ws"
)

func main() {
	var (
		addr           = flag.String("addr", ":8080", "http listen address")
		configPath     = flag.String("config", "", "optional YAML config; environment variables override it")
		dataDir        = flag.String("data", "./data", "runtime data directory (submission journal)")
		disableJournal = flag.Bool("disable_journal", false, "do not record submitted transactions")
		wsPoll         = flag.Duration("ws_poll", 4*time.Second, "state feed poll interval")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cfg, err := config.Load(*configPath, os.Getenv)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	dialTimeout := time.Duration(envInt("LIFECHAIN_DIAL_TIMEOUT_MS", 10000)) * time.Millisecond
	dialCtx, dialCancel := context.WithTimeout(ctx, dialTimeout)
	client, err := chain.Dial(dialCtx, chain.Options{
		RPCURL:   cfg.RPCURL,
		ABIPath:  cfg.ContractABI,
		Contract: cfg.Contract,
		Key:      cfg.Key,
		ChainID:  cfg.ChainID,
		GasPrice: chain.GweiToWei(cfg.GasPriceGwei),
		GasLimit: cfg.GasLimit,
	})
	if err != nil {
		dialCancel()
		logger.Fatalf("dial chain: %v", err)
	}
	head, err := client.BlockNumber(dialCtx)
	dialCancel()
	if err != nil {
		logger.Fatalf("connectivity check: %v", err)
	}
	defer client.Close()
	logger.Printf("connected network=%s chain_id=%s block=%d contract=%s caller=%s",
		cfg.NetworkName, cfg.ChainID, head, cfg.Contract.Hex(), client.Caller().Hex())

	jrnl, err := openJournal(*dataDir, *disableJournal)
	if err != nil {
		logger.Fatalf("open journal: %v", err)
	}
	gwOpts := gateway.Options{
		Network:      cfg.NetworkName,
		GapThreshold: cfg.GapThreshold,
		Logger:       logger,
	}
	if jrnl != nil {
		defer jrnl.Close()
		gwOpts.Recorder = jrnl
	} else {
		logger.Printf("submission journal disabled")
	}
	gw := gateway.New(client, gwOpts)
	apiSrv := api.NewServer(gw, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("ok\n"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		apiSrv.WriteMetrics(rw)
		writeJournalMetrics(rw, jrnl)
	})
	if envBool("LIFECHAIN_ENABLE_PPROF_HTTP", false) {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	} else {
		logger.Printf("pprof endpoints disabled (LIFECHAIN_ENABLE_PPROF_HTTP=false)")
	}
	mux.HandleFunc("/v1/ws", ws.NewServer(gw, *wsPoll, logger).Handler())
	mux.HandleFunc("/", apiSrv.Handler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s (gap_threshold=%d)", *addr, cfg.GapThreshold)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

func writeJournalMetrics(w http.ResponseWriter, j *journal.Journal) {
	if j == nil {
		return
	}
	st := j.IndexStats()
	fmt.Fprintf(w, "# HELP lifechain_journal_index_queue_depth Submissions waiting for the SQLite writer.\n")
	fmt.Fprintf(w, "# TYPE lifechain_journal_index_queue_depth gauge\n")
	fmt.Fprintf(w, "lifechain_journal_index_queue_depth %d\n", st.QueueDepth)
	fmt.Fprintf(w, "# HELP lifechain_journal_index_written_total Submissions written to the SQLite index.\n")
	fmt.Fprintf(w, "# TYPE lifechain_journal_index_written_total counter\n")
	fmt.Fprintf(w, "lifechain_journal_index_written_total %d\n", st.WrittenTotal)
	fmt.Fprintf(w, "# HELP lifechain_journal_index_dropped_total Submissions dropped because the index queue was full.\n")
	fmt.Fprintf(w, "# TYPE lifechain_journal_index_dropped_total counter\n")
	fmt.Fprintf(w, "lifechain_journal_index_dropped_total %d\n", st.DropTotal)
	fmt.Fprintf(w, "# HELP lifechain_journal_index_failed_total SQLite index writes that failed.\n")
	fmt.Fprintf(w, "# TYPE lifechain_journal_index_failed_total counter\n")
	fmt.Fprintf(w, "lifechain_journal_index_failed_total %d\n", st.FailTotal)
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
