package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/brightline/callengine/internal/cache"
	"github.com/brightline/callengine/internal/codec"
	"github.com/brightline/callengine/internal/config"
	"github.com/brightline/callengine/internal/httpapi"
	"github.com/brightline/callengine/internal/llm"
	"github.com/brightline/callengine/internal/session"
	"github.com/brightline/callengine/internal/supervisor"
	"github.com/brightline/callengine/internal/telephony"
	"github.com/brightline/callengine/internal/tts"
)

func main() {
	log.Println("callengine: starting")

	cfg, warnings, err := config.Load(envOrDefault("CALLENGINE_CONFIG_PATH", "config.yaml"))
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	for _, w := range warnings {
		log.Printf("config warning: %s", w)
	}

	provider, modelName, err := llm.ParseModel(cfg.LLMModel)
	if err != nil {
		log.Fatalf("invalid llm_model: %v", err)
	}
	apiKeyFor := map[string]string{
		"openai":    cfg.OpenAIAPIKey,
		"anthropic": cfg.AnthropicAPIKey,
		"gemini":    cfg.GeminiAPIKey,
	}
	llmClient, err := llm.NewClient(provider, apiKeyFor[provider], modelName)
	if err != nil {
		log.Fatalf("llm client init failed: %v", err)
	}

	respCache := cache.New()
	transcoder := codec.NewFFmpegTranscoder()
	ttsAdapter := tts.New(cfg.TTSAPIKey, cfg.TTSVoiceID, cfg.TTSModel, "", respCache, transcoder)
	previewSampler := tts.NewPreviewSampler(ttsAdapter)

	telAdapter := telephony.New(cfg.TelephonyAccountSID, cfg.TelephonyAPIKey, cfg.TelephonyFromNumber, "")

	store := session.NewStore()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sup := supervisor.New(ctx)
	go sup.RunHeartbeat(ctx, os.Getpid())

	go func() {
		log.Println("callengine: warming response cache")
		respCache.Warm(ttsAdapter.WarmFunc())
	}()

	server := httpapi.NewServer(httpapi.Deps{
		Store:         store,
		Config:        cfg,
		Telephony:     telAdapter,
		ASRLanguage:   cfg.ASRLanguage,
		ASRAPIKey:     cfg.DeepgramAPIKey,
		TTS:           ttsAdapter,
		LLMClient:     llmClient,
		VoiceSamples:  previewSampler,
		DefaultOpName: "Michael",
		Supervisor:    sup,
	})

	httpServer := &http.Server{Addr: cfg.ListenAddr, Handler: server.Handler()}
	go func() {
		log.Printf("callengine: control plane listening on %s", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("http server error: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Println("callengine: shutting down")
	cancel()

	shutdownDeadline := cfg.ShutdownTimeoutDuration()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownDeadline)
	defer shutdownCancel()

	if err := sup.Shutdown(shutdownDeadline); err != nil {
		log.Printf("warning: session supervisor shutdown: %v", err)
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("warning: http shutdown failed: %v", err)
	}
}

func envOrDefault(key, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}
