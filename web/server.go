package web

import (
	"net/http"
	"os"
	"path"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/mogaika/toshi_browser/config"
	"github.com/mogaika/toshi_browser/logger"
	"github.com/mogaika/toshi_browser/pack"
	"github.com/mogaika/toshi_browser/scene"
	"github.com/mogaika/toshi_browser/status"
	"github.com/mogaika/toshi_browser/vfs"
)

var (
	ServerCache *pack.InstanceCache
	SceneLoader *scene.Loader
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

func HandlerStatus(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Debug("status websocket upgrade", zap.Error(err))
		return
	}
	status.Attach(conn)
}

func NewRouter(d vfs.Directory, cfg *config.Config) *mux.Router {
	ServerCache = pack.NewInstanceCache(d)
	SceneLoader = scene.NewLoader(ServerCache, cfg.Scene)

	// file and level paths arrive with escaped slashes
	r := mux.NewRouter().UseEncodedPath()
	r.HandleFunc("/action/reset", HandlerResetCache)
	r.HandleFunc("/action/{file}/{param}/{action}", HandlerActionPackFileParam)
	r.HandleFunc("/json/pack/{file}/{param}", HandlerAjaxPackFileParam)
	r.HandleFunc("/json/pack/{file}", HandlerAjaxPackFile)
	r.HandleFunc("/json/pack", HandlerAjaxPack)
	r.HandleFunc("/json/level/{path}", HandlerAjaxLevel)
	r.HandleFunc("/action/level/{path}/{action}", HandlerActionLevel)
	r.HandleFunc("/dump/pack/{file}/{param}", HandlerDumpPackParamFile)
	r.HandleFunc("/dump/pack/{file}", HandlerDumpPackFile)
	r.HandleFunc("/dump/json/{file}", HandlerDumpJsonFile)
	r.HandleFunc("/ws/status", HandlerStatus)

	r.PathPrefix("/").Handler(http.FileServer(http.Dir(path.Join(cfg.Server.WebDir, "data"))))
	return r
}

func StartServer(d vfs.Directory, cfg *config.Config) error {
	r := NewRouter(d, cfg)

	h := handlers.RecoveryHandler()(r)
	h = handlers.LoggingHandler(os.Stdout, h)

	logger.Log.Info("Starting server", zap.String("addr", cfg.Server.Addr), zap.String("data", cfg.Server.DataDir))

	return http.ListenAndServe(cfg.Server.Addr, h)
}
