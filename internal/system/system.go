package system

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/shirou/gopsutil/v3/mem"

	"github.com/ivlev/report2video/internal/logging"
)

// InitResourceLimits raises the open-file limit (macOS/Linux). Rendering keeps
// several ffmpeg pipes and image handles open at once.
func InitResourceLimits() {
	logger := logging.WithComponent("system")

	var rLimit syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		logger.Warn().Err(err).Msg("не удалось получить лимит файлов")
		return
	}

	rLimit.Cur = 2048
	if rLimit.Cur > rLimit.Max {
		rLimit.Cur = rLimit.Max
	}

	if err := syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		logger.Warn().Err(err).Msg("не удалось установить лимит файлов")
	} else {
		logger.Debug().Uint64("nofile", rLimit.Cur).Msg("лимит открытых файлов увеличен")
	}
}

// LogHostInfo logs memory headroom and CPU count before a render. The
// raw-frame backend holds full-canvas RGBA buffers for every background, so
// this tells the operator up front whether the host is cramped.
func LogHostInfo() {
	logger := logging.WithComponent("system")

	vm, err := mem.VirtualMemory()
	if err != nil {
		logger.Debug().Err(err).Msg("memory stats unavailable")
		return
	}
	logger.Info().
		Int("cpus", runtime.NumCPU()).
		Uint64("mem_total_mb", vm.Total/1024/1024).
		Uint64("mem_avail_mb", vm.Available/1024/1024).
		Msg("host snapshot")
}

// FindLatestPDF returns the most recently modified PDF in dir.
func FindLatestPDF(dir string) (string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	var latestFile string
	var latestTime time.Time

	for _, f := range files {
		if !f.IsDir() && strings.HasSuffix(strings.ToLower(f.Name()), ".pdf") {
			info, err := f.Info()
			if err != nil {
				continue
			}
			if info.ModTime().After(latestTime) {
				latestTime = info.ModTime()
				latestFile = filepath.Join(dir, f.Name())
			}
		}
	}

	if latestFile == "" {
		return "", fmt.Errorf("в папке %s не найдено PDF-файлов", dir)
	}

	return latestFile, nil
}

// AudioDuration returns the playtime of an audio file via ffprobe.
func AudioDuration(path string) (float64, error) {
	cmd := exec.Command("ffprobe", "-v", "error", "-show_entries", "format=duration", "-of", "default=noprint_wrappers=1:nokey=1", path)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return 0, err
	}

	var duration float64
	if _, err := fmt.Sscanf(strings.TrimSpace(string(out)), "%f", &duration); err != nil {
		return 0, err
	}

	return duration, nil
}

// CheckFilterSupport reports whether the installed ffmpeg knows the filter.
func CheckFilterSupport(name string) bool {
	cmd := exec.Command("ffmpeg", "-hide_banner", "-filters")
	out, err := cmd.CombinedOutput()
	if err != nil {
		return false
	}
	return strings.Contains(string(out), " "+name+" ")
}

// GetBestH264Encoder probes for a hardware H.264 encoder, falling back to
// software x264.
func GetBestH264Encoder() string {
	encoders := []string{"h264_videotoolbox", "h264_nvenc"}

	cmd := exec.Command("ffmpeg", "-encoders")
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "libx264"
	}
	for _, enc := range encoders {
		if strings.Contains(string(out), enc) {
			return enc
		}
	}
	return "libx264"
}
