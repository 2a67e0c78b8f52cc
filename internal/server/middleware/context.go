package middleware

import (
	"github.com/MicahParks/keyfunc/v3"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/rabbitmq/amqp091-go"

	"github.com/OFFIS-RIT/idisk/backend/pkg/common"
	"github.com/OFFIS-RIT/idisk/backend/pkg/graph"
)

type AppUser struct {
	UserID      int64
	Role        string
	Permissions []string
}

// App holds the shared clients of the API. Key is nil when JWT
// authentication is disabled; Schema is used to lint uploaded files.
type App struct {
	DBConn       *pgxpool.Pool
	Queue        *amqp091.Channel
	Key          keyfunc.Keyfunc
	S3           *s3.Client
	Vocab        *common.Vocabulary
	Schema       graph.Schema
	MasterAPIKey string
	MasterUserID int64
}

type AppContext struct {
	echo.Context
	App  *App
	User *AppUser
}

func AppContextMiddleware(app *App) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cc := &AppContext{c, app, nil}
			return next(cc)
		}
	}
}
