package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"cvforge/internal/auth"
	"cvforge/internal/config"
	"cvforge/internal/database"
	"cvforge/internal/storage"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "create-user":
		createUser(os.Args[2:])
	case "purge-thumbnails":
		purgeThumbnails(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: admin <command> [flags]")
	fmt.Fprintln(os.Stderr, "  create-user       创建初始账号（随机密码，首次登录强制改密）")
	fmt.Fprintln(os.Stderr, "  purge-thumbnails  清理没有对应简历的缩略图对象")
}

func createUser(args []string) {
	fs := flag.NewFlagSet("create-user", flag.ExitOnError)
	username := fs.String("username", "", "初始用户名（必填）")
	_ = fs.Parse(args)

	u := strings.ToLower(strings.TrimSpace(*username))
	if u == "" {
		log.Fatal("missing required flag: --username")
	}

	db := mustOpenDatabase()
	if err := db.AutoMigrate(&database.User{}); err != nil {
		log.Fatalf("auto migrate: %v", err)
	}

	var existing database.User
	switch err := db.Where("username = ?", u).First(&existing).Error; {
	case err == nil:
		log.Fatalf("user %q already exists", u)
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		log.Fatalf("query user: %v", err)
	}

	password, err := generateRandomPassword(24)
	if err != nil {
		log.Fatalf("generate password: %v", err)
	}

	hashed, err := auth.HashPassword(password)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}

	user := database.User{
		Username:           u,
		PasswordHash:       hashed,
		MustChangePassword: true,
	}
	if err := db.Create(&user).Error; err != nil {
		log.Fatalf("create user: %v", err)
	}

	fmt.Printf("已创建初始账号（首次登录需强制改密）：\n")
	fmt.Printf("用户名: %s\n", u)
	fmt.Printf("初始密码: %s\n", password)
	fmt.Printf("提示：请立即登录并修改密码（该密码仅显示一次）。\n")
}

// purgeThumbnails 删除 thumbnails/resume/<id>/ 下对应简历已不存在的对象。
func purgeThumbnails(args []string) {
	fs := flag.NewFlagSet("purge-thumbnails", flag.ExitOnError)
	dryRun := fs.Bool("dry-run", false, "只打印将要删除的前缀")
	_ = fs.Parse(args)

	db := mustOpenDatabase()
	storageClient, err := storage.NewClient(loadMinIOConfig())
	if err != nil {
		log.Fatalf("init storage client: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	objects, err := storageClient.ListObjects(ctx, "thumbnails/resume/", 10000)
	if err != nil {
		log.Fatalf("list thumbnails: %v", err)
	}

	seen := map[uint]bool{}
	var purged int
	for _, obj := range objects {
		resumeID, ok := thumbnailResumeID(obj.Key)
		if !ok || seen[resumeID] {
			continue
		}
		seen[resumeID] = true

		var count int64
		if err := db.Model(&database.Resume{}).Where("id = ?", resumeID).Count(&count).Error; err != nil {
			log.Fatalf("query resume %d: %v", resumeID, err)
		}
		if count > 0 {
			continue
		}

		prefix := fmt.Sprintf("thumbnails/resume/%d/", resumeID)
		if *dryRun {
			fmt.Printf("would delete %s\n", prefix)
			continue
		}
		if err := storageClient.DeletePrefix(ctx, prefix); err != nil {
			log.Fatalf("delete %s: %v", prefix, err)
		}
		fmt.Printf("deleted %s\n", prefix)
		purged++
	}

	fmt.Printf("done, purged %d orphaned prefixes\n", purged)
}

// thumbnailResumeID 从 thumbnails/resume/<id>/... 解析简历 ID。
func thumbnailResumeID(key string) (uint, bool) {
	rest := strings.TrimPrefix(key, "thumbnails/resume/")
	if rest == key {
		return 0, false
	}
	idPart, _, ok := strings.Cut(rest, "/")
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseUint(idPart, 10, 64)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}

func mustOpenDatabase() *gorm.DB {
	dbCfg, err := loadDatabaseConfig()
	if err != nil {
		log.Fatalf("load database config: %v", err)
	}
	db, err := database.InitDatabase(dbCfg)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	return db
}

func loadDatabaseConfig() (config.DatabaseConfig, error) {
	host := strings.TrimSpace(os.Getenv("DATABASE_HOST"))
	if host == "" {
		host = "localhost"
	}

	port := 5432
	if env := strings.TrimSpace(os.Getenv("DATABASE_PORT")); env != "" {
		p, err := strconv.Atoi(env)
		if err != nil {
			return config.DatabaseConfig{}, fmt.Errorf("parse DATABASE_PORT: %w", err)
		}
		port = p
	}

	sslmode := strings.TrimSpace(os.Getenv("DATABASE_SSLMODE"))
	if sslmode == "" {
		sslmode = "disable"
	}

	name := strings.TrimSpace(os.Getenv("POSTGRES_DB"))
	user := strings.TrimSpace(os.Getenv("POSTGRES_USER"))
	password := strings.TrimSpace(os.Getenv("POSTGRES_PASSWORD"))
	if name == "" {
		return config.DatabaseConfig{}, errors.New("database name is required (POSTGRES_DB)")
	}
	if user == "" {
		return config.DatabaseConfig{}, errors.New("database user is required (POSTGRES_USER)")
	}
	if password == "" {
		return config.DatabaseConfig{}, errors.New("database password is required (POSTGRES_PASSWORD)")
	}

	return config.DatabaseConfig{
		Host:     host,
		Port:     port,
		Name:     name,
		User:     user,
		Password: password,
		SSLMode:  sslmode,
	}, nil
}

func loadMinIOConfig() config.MinIOConfig {
	endpoint := strings.TrimSpace(os.Getenv("MINIO_ENDPOINT"))
	if endpoint == "" {
		endpoint = "localhost:9000"
	}
	publicEndpoint := strings.TrimSpace(os.Getenv("MINIO_PUBLIC_ENDPOINT"))
	if publicEndpoint == "" {
		publicEndpoint = "http://" + endpoint
	}
	bucket := strings.TrimSpace(os.Getenv("MINIO_BUCKET"))
	if bucket == "" {
		bucket = "resumes"
	}
	return config.MinIOConfig{
		Endpoint:        endpoint,
		PublicEndpoint:  publicEndpoint,
		AccessKeyID:     os.Getenv("MINIO_ACCESS_KEY_ID"),
		SecretAccessKey: os.Getenv("MINIO_SECRET_ACCESS_KEY"),
		UseSSL:          strings.EqualFold(os.Getenv("MINIO_USE_SSL"), "true"),
		Bucket:          bucket,
	}
}

func generateRandomPassword(bytesLen int) (string, error) {
	if bytesLen <= 0 {
		bytesLen = 24
	}
	buf := make([]byte, bytesLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
