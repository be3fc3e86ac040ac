package main

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	gintrace "gopkg.in/DataDog/dd-trace-go.v1/contrib/gin-gonic/gin"

	"github.com/postline/postline/cache"
	"github.com/postline/postline/filestore"
	"github.com/postline/postline/server"
	"github.com/postline/postline/utils"
	"github.com/postline/postline/utils/dotenv"
	. "github.com/postline/postline/utils/flag"
	Logger "github.com/postline/postline/utils/log"
)

func cleanup() {
	utils.CloseProfiler()
	utils.CloseTracer()
	Logger.Log.Info("api server shutdown")
}

func main() {
	defer cleanup()

	Parse()

	if err := dotenv.LoadDotEnvs(); err != nil {
		panic(err)
	}

	utils.StartTracer()
	utils.StartProfiler()

	db, err := utils.GetDBConnection()
	if err != nil {
		Logger.Log.Fatal("fail to connect to database: ", err)
	}
	utils.DatabaseSetupAndMigration(db)

	images, err := filestore.NewS3ImageStore()
	if err != nil {
		Logger.Log.Fatal("fail to set up image store: ", err)
	}

	pageCache := cache.NewRedisCache(cache.DefaultTTL)

	// Default With the Logger and Recovery middleware already attached
	router := gin.Default()

	router.Use(cors.Default())
	router.Use(gintrace.Middleware(ServiceName))

	server.AddRoutes(router, db, pageCache, images)

	// Debug route for health check
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	Logger.Log.Info("api server starts up")
	router.Run(":8080")
}
