package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"pixeldrive/config"
	"pixeldrive/controller"
	"pixeldrive/input"
	"pixeldrive/pixel"
	"pixeldrive/preview"
	"pixeldrive/serial"
)

func main() {
	// ---- Flags (remain usable; the config file can override most) ----
	var (
		port        = flag.String("port", "", "serial device path (empty = autodetect)")
		baud        = flag.Int("baud", 1_000_000, "baud rate (ignored for USB CDC)")
		kbd         = flag.String("kbd", "", "keyboard event device path (empty = autodetect)")
		leds        = flag.Int("leds", 288, "number of LEDs")
		fps         = flag.Int("fps", 50, "flush rate in frames per second")
		brightness  = flag.Int("brightness", 64, "global device brightness 0..255")
		debounceMs  = flag.Int("debounce-ms", 0, "per-key debounce window in ms (0 = disabled)")
		fadeMs      = flag.Int("fade-ms", 1000, "fade-to-dark time in ms (0 = no fade)")
		previewAddr = flag.String("preview", "", "preview HTTP listen address (empty = disabled)")
		configPath  = flag.String("config", "pixeldrive.yaml", "path to config file")
		verbose     = flag.Bool("verbose", false, "enable debug logging")
	)
	flag.Parse()

	// ---- Logging ----
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})
	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	// ---- Load config file (optional) ----
	var cfg *config.Config
	if c, err := config.Load(*configPath); err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", *configPath).Msg("config load failed; proceeding with flags")
		}
	} else {
		cfg = c
	}

	// ---- Effective params (config overrides flags where set) ----
	ePort, eKbd := *port, *kbd
	eBaud, eLEDs, eFPS := *baud, *leds, *fps
	eBrightnessRaw := *brightness
	eDebounceMs, eFadeMs := *debounceMs, *fadeMs
	ePreview := *previewAddr
	eColor := pixel.Color{R: 128, G: 128, B: 128}
	var eMapping []config.Binding

	if cfg != nil {
		if cfg.Port != "" {
			ePort = cfg.Port
		}
		if cfg.Keyboard != "" {
			eKbd = cfg.Keyboard
		}
		eBaud, eLEDs, eFPS = cfg.Baud, cfg.LEDs, cfg.FPS
		eBrightnessRaw = int(*cfg.Brightness)
		eDebounceMs, eFadeMs = cfg.DebounceMs, *cfg.FadeMs
		if cfg.PreviewAddr != "" {
			ePreview = cfg.PreviewAddr
		}
		eColor = pixel.Color{R: cfg.Color.R, G: cfg.Color.G, B: cfg.Color.B}
		eMapping = cfg.Mapping
	}

	// Flag values bypass the config loader, so the effective set gets the
	// same validation a config file would.
	if eBrightnessRaw < 0 || eBrightnessRaw > 255 {
		log.Fatal().Int("brightness", eBrightnessRaw).Msg("brightness must be in 0..255")
	}
	eBrightness := uint8(eBrightnessRaw)
	eff := config.Config{
		LEDs:       eLEDs,
		FPS:        eFPS,
		Brightness: &eBrightness,
		FadeMs:     &eFadeMs,
		DebounceMs: eDebounceMs,
		Mapping:    eMapping,
	}
	if err := eff.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid parameters")
	}
	eDebounce := time.Duration(eDebounceMs) * time.Millisecond
	eFade := time.Duration(eFadeMs) * time.Millisecond

	// ---- Devices ----
	if ePort == "" {
		ePort = serial.Autodetect()
		if ePort == "" {
			all := serial.Candidates()
			log.Fatal().
				Str("candidates", strings.Join(all, ", ")).
				Msg("no serial port auto-detected; use -port /dev/ttyACM0")
		}
	}
	if eKbd == "" {
		eKbd = input.Autodetect()
		if eKbd == "" {
			log.Fatal().Msg("no keyboard device found; use -kbd /dev/input/by-id/...-event-kbd")
		}
	}

	sc := serial.DefaultConfig(ePort)
	sc.Baud = eBaud
	sp, err := serial.Open(sc)
	if err != nil {
		log.Fatal().Err(err).Str("port", ePort).Msg("serial open failed")
	}
	defer sp.Close()

	dev, err := input.OpenDevice(eKbd)
	if err != nil {
		log.Fatal().Err(err).Str("keyboard", eKbd).Msg("input open failed")
	}
	defer dev.Close()

	// ---- Keymap: explicit bindings from config, modulo fallback ----
	keymap := controller.NewKeymap(eLEDs, eColor, true)
	for _, b := range eMapping {
		c := eColor
		if b.Color != nil {
			c = pixel.Color{R: b.Color.R, G: b.Color.G, B: b.Color.B}
		}
		keymap.Bind(b.Key, controller.Binding{Index: b.Index, Color: c})
	}

	ctrl := controller.New(sp, keymap, eLEDs, controller.Options{
		FPS:        eFPS,
		Brightness: eBrightness,
		Fade:       eFade,
		Debounce:   eDebounce,
	}, log.Logger)

	// ---- Preview (optional) ----
	if ePreview != "" {
		pv := preview.NewServer(eLEDs, log.Logger)
		ctrl.SetPublisher(pv.Publish)
		go func() {
			log.Info().Str("addr", ePreview).Msg("preview server starting")
			if err := http.ListenAndServe(ePreview, pv.Routes()); err != nil {
				log.Error().Err(err).Msg("preview server stopped")
			}
		}()
	}

	// ---- Run until signalled ----
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().
		Str("port", ePort).
		Str("keyboard", eKbd).
		Int("leds", eLEDs).
		Int("fps", eFPS).
		Msg("pixeldrive starting")

	if err := ctrl.Run(ctx, dev); err != nil {
		log.Fatal().Err(err).Msg("pipeline failed")
	}
	log.Info().Msg("shutdown complete")
}
