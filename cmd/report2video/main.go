package main

import (
	"context"
	"flag"
	"fmt"
	"image/png"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/ivlev/report2video/internal/avatar"
	"github.com/ivlev/report2video/internal/compose"
	"github.com/ivlev/report2video/internal/config"
	"github.com/ivlev/report2video/internal/extract"
	"github.com/ivlev/report2video/internal/logging"
	"github.com/ivlev/report2video/internal/media"
	"github.com/ivlev/report2video/internal/speech"
	"github.com/ivlev/report2video/internal/system"
)

func main() {
	// Увеличиваем лимиты системы (для macOS/Linux)
	system.InitResourceLimits()

	// Создаем нужные директории, если их нет
	dirs := []string{"input/pdf", "output"}
	for _, d := range dirs {
		os.MkdirAll(d, 0755)
	}

	inputPtr := flag.String("input", "", "Путь к PDF-отчету (по умолчанию: самый свежий файл в input/pdf/)")
	outputPtr := flag.String("output", "", "Путь к видео (если пусто, генерируется автоматически в output/)")
	canvasPtr := flag.String("canvas", "1280x720", "Размер холста WxH")
	pipPtr := flag.String("pip", "320x240", "Размер окна аватара WxH")
	anchorPtr := flag.String("anchor", "bottom_right", "Позиция аватара: bottom_right, bottom_left, top_right, top_left, center, bottom_center")
	marginPtr := flag.Int("margin", 20, "Отступ аватара от края холста")
	fpsPtr := flag.Int("fps", 30, "FPS")
	dpiPtr := flag.Int("dpi", extract.DefaultDPI, "DPI рендера страниц отчета")
	maxImagesPtr := flag.Int("max-images", 0, "Ограничение числа изображений (0 - без лимита)")
	reportURLPtr := flag.String("report-url", "", "URL полного отчета: добавляет финальный слайд с QR-кодом")
	voicePtr := flag.String("voice", "", "ID голоса (по умолчанию из окружения)")
	avatarPtr := flag.String("avatar", "", "ID аватара HeyGen (по умолчанию из окружения)")
	audioSourcePtr := flag.String("audio-source", "heygen", "Источник озвучки: heygen или elevenlabs")
	cachedAvatarPtr := flag.String("cached-avatar", "", "Готовый клип аватара: пропускает генерацию через API")
	rendererPtr := flag.String("renderer", "", "Бэкенд рендера: layered, frames (пусто - автовыбор)")
	storyboardPtr := flag.Bool("storyboard", false, "Сохранить storyboard YAML рядом с видео")
	extractOnlyPtr := flag.Bool("extract-only", false, "Только извлечь текст и изображения, без генерации видео")
	verbosePtr := flag.Bool("verbose", false, "Подробные логи")

	flag.Parse()

	logging.Init(*verbosePtr)

	cfg := &config.Config{
		InputPDF:        *inputPtr,
		OutputVideo:     *outputPtr,
		Anchor:          *anchorPtr,
		Margin:          *marginPtr,
		FPS:             *fpsPtr,
		DPI:             *dpiPtr,
		MaxImages:       *maxImagesPtr,
		ReportURL:       *reportURLPtr,
		VoiceID:         *voicePtr,
		AvatarID:        *avatarPtr,
		AudioSource:     *audioSourcePtr,
		CachedAvatar:    *cachedAvatarPtr,
		Renderer:        *rendererPtr,
		WriteStoryboard: *storyboardPtr,
		Verbose:         *verbosePtr,
	}
	cfg.LoadEnv()

	var err error
	if cfg.Width, cfg.Height, err = parseSize(*canvasPtr); err != nil {
		log.Fatalf("[-] Ошибка: некорректный -canvas: %v", err)
	}
	if cfg.PIPWidth, cfg.PIPHeight, err = parseSize(*pipPtr); err != nil {
		log.Fatalf("[-] Ошибка: некорректный -pip: %v", err)
	}

	if cfg.InputPDF == "" {
		latest, err := system.FindLatestPDF("input/pdf")
		if err != nil {
			log.Fatalf("[-] Ошибка: %v. Положите PDF в input/pdf/", err)
		}
		cfg.InputPDF = latest
		fmt.Printf("[*] Выбран файл: %s\n", cfg.InputPDF)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	system.LogHostInfo()

	// 1. Извлечение
	extractor, err := extract.NewReportExtractor(cfg.InputPDF, cfg.DPI)
	if err != nil {
		log.Fatalf("[-] Ошибка открытия отчета: %v", err)
	}
	content, err := extractor.ExtractAll()
	extractor.Close()
	if err != nil {
		log.Fatalf("[-] Ошибка извлечения: %v", err)
	}
	fmt.Printf("[*] Извлечено: %d символов текста, %d изображений\n",
		len(content.PatientExplanation), len(content.Images))

	if content.PatientExplanation == "" {
		log.Fatalf("[-] Ошибка: в отчете нет текста объяснения")
	}

	if *extractOnlyPtr {
		if err := dumpExtracted(content); err != nil {
			log.Fatalf("[-] Ошибка сохранения: %v", err)
		}
		fmt.Println("[+++] Извлечение завершено, видео не запрашивалось")
		return
	}

	images := content.Images
	if cfg.MaxImages > 0 && len(images) > cfg.MaxImages {
		images = images[:cfg.MaxImages]
	}

	if cfg.ReportURL != "" {
		card, err := media.QRCard(cfg.ReportURL, cfg.Width, cfg.Height)
		if err != nil {
			log.Printf("[!] QR-слайд не добавлен: %v", err)
		} else {
			images = append(images, card)
			fmt.Printf("[*] Добавлен QR-слайд: %s\n", cfg.ReportURL)
		}
	}

	// 2. Аватар
	avatarPath := cfg.CachedAvatar
	if avatarPath == "" {
		avatarPath, err = generateAvatar(ctx, cfg, content.PatientExplanation)
		if err != nil {
			log.Fatalf("[-] Ошибка генерации аватара: %v", err)
		}
	} else {
		fmt.Printf("[*] Используется готовый клип аватара: %s\n", avatarPath)
	}

	// 3. Композиция
	finalOutput := cfg.OutputVideo
	if finalOutput == "" {
		baseName := filepath.Base(cfg.InputPDF)
		nameOnly := strings.TrimSuffix(baseName, filepath.Ext(baseName))
		cleanName := strings.ReplaceAll(nameOnly, " ", "_")
		timestamp := time.Now().Format("2006-01-02_15-04-05")
		finalOutput = filepath.Join("output", fmt.Sprintf("%s_%s.mp4", cleanName, timestamp))
	}

	renderer, err := compose.SelectRenderer(cfg.Renderer)
	if err != nil {
		log.Fatalf("[-] Ошибка: %v", err)
	}
	fmt.Printf("[*] Бэкенд рендера: %s\n", renderer.Name())

	composer, err := compose.New(renderer)
	if err != nil {
		log.Fatalf("[-] Ошибка инициализации: %v", err)
	}

	req := media.CompositionRequest{
		AvatarPath:      avatarPath,
		Images:          images,
		OutputPath:      finalOutput,
		CanvasWidth:     cfg.Width,
		CanvasHeight:    cfg.Height,
		PIPWidth:        cfg.PIPWidth,
		PIPHeight:       cfg.PIPHeight,
		PIPAnchor:       media.Anchor(cfg.Anchor),
		Margin:          cfg.Margin,
		FPS:             cfg.FPS,
		WriteStoryboard: cfg.WriteStoryboard,
	}

	// log.Fatalf не запускает defer, поэтому scratch-папку закрываем явно
	out, err := composer.Compose(ctx, req)
	if err != nil {
		composer.Close()
		log.Fatalf("[-] Ошибка композиции: %v", err)
	}
	composer.Close()

	fmt.Printf("[+++] Успех! Результат: %s\n", out)
}

// generateAvatar runs the narration pipeline: either HeyGen voices the text
// itself, or ElevenLabs synthesizes the audio first and HeyGen lip-syncs it.
func generateAvatar(ctx context.Context, cfg *config.Config, text string) (string, error) {
	hg := avatar.NewClient(cfg.HeyGenAPIURL, cfg.HeyGenAPIKey, "output",
		time.Duration(cfg.PollSeconds)*time.Second,
		time.Duration(cfg.MaxWaitSeconds)*time.Second)

	genReq := avatar.GenerateRequest{
		AvatarID: cfg.AvatarID,
		Text:     text,
	}

	switch cfg.AudioSource {
	case "elevenlabs":
		el := speech.NewClient(cfg.ElevenLabsAPIURL, cfg.ElevenLabsAPIKey, "output")
		fmt.Println("[*] Синтез речи через ElevenLabs...")
		audioPath, err := el.Synthesize(ctx, text, cfg.VoiceID, 1.0)
		if err != nil {
			return "", err
		}
		if dur, err := system.AudioDuration(audioPath); err == nil {
			fmt.Printf("[*] Озвучка готова: %.2fs\n", dur)
		} else {
			log.Printf("[!] Не удалось получить длительность озвучки: %v", err)
		}
		fmt.Println("[*] Загрузка аудио в HeyGen...")
		audioURL, err := hg.UploadAudio(ctx, audioPath)
		if err != nil {
			return "", err
		}
		genReq.AudioURL = audioURL
	case "heygen":
		genReq.VoiceID = cfg.VoiceID
	default:
		return "", fmt.Errorf("неизвестный audio-source %q", cfg.AudioSource)
	}

	fmt.Println("[*] Запуск генерации видео аватара...")
	videoID, err := hg.Generate(ctx, genReq)
	if err != nil {
		return "", err
	}
	fmt.Printf("[*] Задача принята, video_id=%s, ожидание...\n", videoID)

	return hg.WaitForVideo(ctx, videoID)
}

// dumpExtracted writes the narration text and page images under output/.
func dumpExtracted(content *extract.Content) error {
	if err := os.WriteFile(filepath.Join("output", "explanation.txt"),
		[]byte(content.PatientExplanation), 0644); err != nil {
		return err
	}
	fmt.Println("[*] Текст: output/explanation.txt")

	for _, img := range content.Images {
		path := filepath.Join("output", fmt.Sprintf("page_%d.png", img.PageNumber))
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := png.Encode(f, img.Pixels); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Printf("[*] Изображение: %s (%s)\n", path, img.Caption)
	}
	return nil
}

// parseSize parses a "WxH" size string.
func parseSize(s string) (int, int, error) {
	var w, h int
	if _, err := fmt.Sscanf(s, "%dx%d", &w, &h); err != nil {
		return 0, 0, fmt.Errorf("ожидается WxH, получено %q", s)
	}
	if w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("размер должен быть положительным: %q", s)
	}
	return w, h, nil
}
