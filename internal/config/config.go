package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

type Config struct {
	ServerPort string

	StoreDriver string // "postgres" hoặc "memory"
	DBDriver    string // tên driver database/sql: "pgx" hoặc "postgres" (lib/pq)
	DBHost      string
	DBPort      int
	DBUser      string
	DBPassword  string
	DBName      string
	DBSslMode   string
	DBListen    bool // bật LISTEN/NOTIFY để nhận thay đổi từ các instance khác

	AWSRegion          string
	SQSRequestQueueURL string // khách hàng yêu cầu lấy xe
	SQSNotifyQueueURL  string // thông báo gửi khách hàng (WhatsApp/SMS gateway)

	JWTSecret          string
	JWTExpirationHours time.Duration

	PollURL      string
	PollInterval time.Duration

	LogLevel  string
	LogFormat string
	LogFile   string
}

func Load() *Config {
	err := godotenv.Load()
	if err != nil && !os.IsNotExist(err) {
		log.Printf("Cảnh báo: Không thể tải file .env: %v", err)
	}

	dbPort, _ := strconv.Atoi(getEnv("DB_PORT", "5432"))
	jwtExpHours, _ := strconv.Atoi(getEnv("JWT_EXPIRATION_HOURS", "24"))
	pollSeconds, err := strconv.Atoi(getEnv("POLL_INTERVAL_SECONDS", "10"))
	if err != nil || pollSeconds <= 0 {
		pollSeconds = 10
	}
	dbListen, _ := strconv.ParseBool(getEnv("DB_LISTEN", "false"))

	serverPort := getEnv("SERVER_PORT", "8080")

	return &Config{
		ServerPort: serverPort,

		StoreDriver: getEnv("STORE_DRIVER", StoreDriverPostgres),
		DBDriver:    getEnv("DB_SQL_DRIVER", "pgx"),
		DBHost:      getEnv("DB_HOST", "localhost"),
		DBPort:      dbPort,
		DBUser:      getEnv("DB_USER", "valet"),
		DBPassword:  getEnv("DB_PASSWORD", "valet"),
		DBName:      getEnv("DB_NAME", "valet_db"),
		DBSslMode:   getEnv("DB_SSLMODE", "disable"),
		DBListen:    dbListen,

		AWSRegion:          getEnv("AWS_REGION", "ap-south-1"),
		SQSRequestQueueURL: getEnv("SQS_REQUEST_QUEUE_URL", ""),
		SQSNotifyQueueURL:  getEnv("SQS_NOTIFY_QUEUE_URL", ""),

		JWTSecret:          getEnv("JWT_SECRET", "change-me-valet-jwt-secret"),
		JWTExpirationHours: time.Duration(jwtExpHours) * time.Hour,

		PollURL:      getEnv("POLL_URL", "http://localhost:"+serverPort+"/api/cars/occupied"),
		PollInterval: time.Duration(pollSeconds) * time.Second,

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
		LogFile:   getEnv("LOG_FILE", ""),
	}
}

// PostgresDSN trả về chuỗi kết nối dùng chung cho sql.Open và pq.Listener.
func (c *Config) PostgresDSN() string {
	return "host=" + c.DBHost +
		" port=" + strconv.Itoa(c.DBPort) +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" sslmode=" + c.DBSslMode
}

func getEnv(key string, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Printf("Biến môi trường '%s' không được đặt, sử dụng giá trị mặc định: '%s'", key, fallback)
	return fallback
}
