package main

import (
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"path"
	"regexp"

	"boxoffice/src/boot"
	"boxoffice/src/config"
	"boxoffice/src/types"

	"github.com/covalenthq/lumberjack"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	_ "github.com/joho/godotenv/autoload"
)

const (
	apiPrefix string = "/api/v1"
)

var phoneRegexp = regexp.MustCompile(`^\+?[0-9][0-9\s\-().]{6,19}$`)

var phoneValidatorFunc validator.Func = func(fl validator.FieldLevel) bool {
	phone, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	return phoneRegexp.MatchString(phone)
}

func initLogger() {
	cwd, _ := os.Getwd()
	serverLogs := path.Join(cwd, "logs", "server.log")
	apiLogs := path.Join(cwd, "logs", "api.log")
	gin.ForceConsoleColor()

	f, _ := os.Create(apiLogs)
	gin.DefaultWriter = io.MultiWriter(f, os.Stdout)
	log.SetOutput(&lumberjack.Logger{
		Filename:   serverLogs,
		MaxSize:    500,
		MaxBackups: 3,
		MaxAge:     30,
		Compress:   true,
	})
}

func apiv1Group(g *gin.Engine) *gin.RouterGroup {
	return g.Group(apiPrefix)
}

func setupRouter() *gin.Engine {
	router := gin.Default()
	return router
}

// abortWithServiceError maps typed service failures onto HTTP statuses. The
// error body always carries the machine-readable code and its details.
func abortWithServiceError(ctx *gin.Context, err error) {
	var serr *types.ServiceError
	if !errors.As(err, &serr) {
		log.Printf("unexpected error: %s\n", err.Error())
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}
	status := http.StatusBadRequest
	switch serr.Code {
	case types.ErrCodeOrderNotFound, types.ErrCodeEventNotFound, types.ErrCodeCategoryNotFound, types.ErrCodeTournamentNotFound:
		status = http.StatusNotFound
	case types.ErrCodeInsufficientSeats, types.ErrCodeCategoryNotPurchasable, types.ErrCodeInvalidStatus:
		status = http.StatusConflict
	}
	ctx.JSON(status, serr)
}

func main() {
	apiEnv := config.API_ENV
	if apiEnv == "local" {
		cwd, _ := os.Getwd()
		if err := godotenv.Load(path.Join(cwd, ".env")); err != nil {
			panic(err)
		}
	}
	initLogger()

	boot.InitDb()
	boot.InitScheduler()
	defer boot.StopScheduler()

	router := setupRouter()

	appHost := os.Getenv("APP_HOST")
	if apiEnv == "local" {
		router.Use(cors.Default())
	} else {
		cc := cors.DefaultConfig()
		cc.AllowMethods = append(cc.AllowMethods, "GET", "POST", "PATCH", "PUT", "DELETE", "HEAD")
		cc.AllowHeaders = append(cc.AllowHeaders, "Origin", "Authorization")
		cc.AllowOriginFunc = func(origin string) bool {
			match, _ := regexp.MatchString(appHost, origin)
			return match
		}
		cc.AllowCredentials = true
		cc.AllowAllOrigins = false
		router.Use(cors.New(cc))
	}

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("phone", phoneValidatorFunc)
	}

	eventRoutes(router)
	orderRoutes(router)
	stripeWebhookRoute(router)
	adminRoutes(router)

	port := os.Getenv("PORT")
	if port == "" {
		port = "9090"
	}
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("error starting server: %s\n", err.Error())
	}
}
