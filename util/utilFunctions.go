package util

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

var DB *sql.DB
var JWTSecret string
var MailAPIKey string
var ClientID string
var ClientSecret string

// AppSettings holds the feature toggles that the platform treats as policy:
// they are read once at startup and passed nowhere else.
type AppSettings struct {
	AllowResubmit        bool
	EnforceDeadline      bool
	DeadlineGraceSeconds int
	EmailBatchSize       int
	EmailBatchPause      time.Duration
	EmailTimeout         time.Duration
	UseSendGrid          bool
	CORSAllowOrigins     string
	MaxUploadBytes       int64
	FrontendDomain       string
	FromEmail            string
	StorageBucket        string
}

var Settings AppSettings

func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v == "true" || v == "1"
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// LoadSettings populates Settings from the environment with defaults
// matching previous production behavior.
func LoadSettings() {
	Settings = AppSettings{
		AllowResubmit:        envBool("ALLOW_RESUBMIT", false),
		EnforceDeadline:      envBool("ENFORCE_DEADLINE", false),
		DeadlineGraceSeconds: envInt("DEADLINE_GRACE_SECONDS", 30),
		EmailBatchSize:       envInt("EMAIL_BATCH_SIZE", 20),
		EmailBatchPause:      time.Duration(envInt("EMAIL_BATCH_PAUSE_MS", 500)) * time.Millisecond,
		EmailTimeout:         time.Duration(envInt("EMAIL_TIMEOUT_SECONDS", 10)) * time.Second,
		UseSendGrid:          envBool("USE_SENDGRID", true),
		CORSAllowOrigins:     os.Getenv("CORS_ALLOW_ORIGINS"),
		MaxUploadBytes:       int64(envInt("MAX_UPLOAD_BYTES", 20*1024*1024)),
		FrontendDomain:       os.Getenv("FRONTEND_DOMAIN"),
		FromEmail:            os.Getenv("FROM_EMAIL"),
		StorageBucket:        os.Getenv("GCS_BUCKET"),
	}
	if Settings.CORSAllowOrigins == "" {
		Settings.CORSAllowOrigins = "*"
	}
}

func getDBCredentialsandPopulateSecrets() (string, error) {
	if env := os.Getenv("ENV"); env == "DEV" || env == "DEV_DB" {
		err := godotenv.Load()
		if err != nil {
			return "", errors.New("couldn't get environment variables")
		}
		dbUser := os.Getenv("DB_USER")
		dbPass := os.Getenv("DB_PASS")
		dbHost := os.Getenv("DB_HOST")
		dbPort := os.Getenv("DB_PORT")
		dbName := os.Getenv("DB_NAME")
		sslMode := os.Getenv("SSL_MODE")
		if os.Getenv("ENV") == "DEV_DB" {
			dbUser = os.Getenv("LOCAL_DB_USER")
			dbPass = os.Getenv("LOCAL_DB_PASS")
			dbHost = os.Getenv("LOCAL_DB_HOST")
			dbPort = os.Getenv("LOCAL_DB_PORT")
			dbName = os.Getenv("LOCAL_DB_NAME")
		}

		JWTSecret = os.Getenv("JWT_SECRET")
		MailAPIKey = os.Getenv("MAIL_API_KEY")
		ClientID = os.Getenv("GOOGLE_CLIENT_ID")
		ClientSecret = os.Getenv("GOOGLE_CLIENT_SECRET")
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			dbHost, dbPort, dbUser, dbPass, dbName, sslMode), nil
	}

	name := os.Getenv("SECRET_VERSION_NAME")
	if name == "" {
		return "", errors.New("SECRET_VERSION_NAME not set")
	}
	ctx := context.Background()
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return "", errors.New("couldn't get cloud secret")
	}
	defer client.Close()
	req := &secretmanagerpb.AccessSecretVersionRequest{
		Name: name,
	}
	result, err := client.AccessSecretVersion(ctx, req)
	if err != nil {
		log.Fatal("failed to access secret version: ", err)
	}
	stringVal := string(result.Payload.Data)
	words := strings.Fields(stringVal)
	if len(words) < 5 {
		return "", errors.New("secret payload malformed")
	}
	ClientID = words[0]
	ClientSecret = words[1]
	MailAPIKey = words[2]
	JWTSecret = words[3]
	return strings.Join(words[4:], " "), nil
}

func DBConnectAndPopulateDBVar() error {
	connectString, err := getDBCredentialsandPopulateSecrets()
	if err != nil {
		return errors.New("couldn't get credentials")
	}
	DB, err = sql.Open("postgres", connectString)
	if err != nil {
		return err
	}
	if err = DB.Ping(); err != nil {
		return err
	}
	return nil
}

func GetGoogleConfig() *oauth2.Config {
	var uri string
	if os.Getenv("ENV") == "DEV" {
		uri = "http://localhost:8080/api/auth/google-callback"
	} else {
		uri = os.Getenv("OAUTH_CALLBACK_URL")
	}
	return &oauth2.Config{
		RedirectURL:  uri,
		ClientID:     ClientID,
		ClientSecret: ClientSecret,
		Scopes:       []string{"https://www.googleapis.com/auth/userinfo.email", "https://www.googleapis.com/auth/userinfo.profile"},
		Endpoint:     google.Endpoint,
	}
}
