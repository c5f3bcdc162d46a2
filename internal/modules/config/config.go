package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/eric2788/webmrec/utils"
	"github.com/sirupsen/logrus"
	"go.uber.org/fx"
	"golang.org/x/crypto/bcrypt"
)

const (
	SinkFile = "file"
	SinkLink = "link"
)

// all config will be loaded from environment variables
type Config struct {
	Port      string
	PublicURL string
	LogLevel  logrus.Level

	MaxSessions      int
	DefaultName      string
	FragmentInterval time.Duration
	SourceRateLimit  int // bytes per second, 0 for unlimited

	OutputDir     string
	RepairWorkDir string
	FFmpegPath    string

	Sink        string
	DownloadTTL time.Duration

	Username     string
	PasswordHash string
	JwtSecret    string
}

func provider() (*Config, error) {

	password := os.Getenv("PASSWORD")
	username := os.Getenv("USERNAME")

	var passwordHash []byte
	var err error

	if password != "" && username != "" {
		passwordHash, err = bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	} else {
		passwordHash, err = []byte{}, nil
	}

	if err != nil {
		return nil, err
	}

	level, err := logrus.ParseLevel(utils.EmptyOrElse(os.Getenv("LOG_LEVEL"), "info"))
	if err != nil {
		return nil, err
	}
	logrus.SetLevel(level)

	port := utils.EmptyOrElse(os.Getenv("PORT"), "8080")

	return &Config{
		Port:             port,
		PublicURL:        utils.EmptyOrElse(os.Getenv("PUBLIC_URL"), "http://localhost:"+port),
		LogLevel:         level,
		MaxSessions:      utils.MustAtoi(utils.EmptyOrElse(os.Getenv("MAX_SESSIONS"), "5")),
		DefaultName:      utils.EmptyOrElse(os.Getenv("DEFAULT_NAME"), "recorded"),
		FragmentInterval: utils.Millis(utils.EmptyOrElse(os.Getenv("FRAGMENT_INTERVAL_MS"), "1000")),
		SourceRateLimit:  utils.MustAtoi(utils.EmptyOrElse(os.Getenv("SOURCE_RATE_LIMIT_KB"), "0")) * 1024,
		OutputDir:        utils.EmptyOrElse(os.Getenv("OUTPUT_DIR"), "records"),
		RepairWorkDir:    utils.EmptyOrElse(os.Getenv("REPAIR_WORK_DIR"), filepath.Join(os.TempDir(), "webmrec")),
		FFmpegPath:       utils.EmptyOrElse(os.Getenv("FFMPEG_PATH"), "ffmpeg"),
		Sink:             utils.EmptyOrElse(os.Getenv("SINK"), SinkFile),
		DownloadTTL:      time.Duration(utils.MustAtoi(utils.EmptyOrElse(os.Getenv("DOWNLOAD_TTL_MINUTES"), "30"))) * time.Minute,
		Username:         username,
		PasswordHash:     string(passwordHash),
		JwtSecret:        utils.EmptyOrElse(os.Getenv("JWT_SECRET"), "webmrec_secret"),
	}, nil
}

var Module = fx.Module("config", fx.Provide(provider))
