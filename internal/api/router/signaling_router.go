package router

import (
	"devconnect-backend/internal/api"
	"devconnect-backend/internal/api/endpoints"
	"net/http"
)

func UtilsRoutes(prefix string) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		utilsEndpoints := endpoints.NewUtilsEndpoints()
		mux.HandleFunc(prefix+"/hello-world", s.MakeHTTPHandleFunc(utilsEndpoints.HelloWorld))
		mux.HandleFunc(prefix+"/health", s.MakeHTTPHandleFunc(utilsEndpoints.Health))
	}
}

func SignalingRoutes(prefix string) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		signalingEndpoints := endpoints.NewSignalingEndpoints(s.Handler(), s.Database())
		mux.HandleFunc(prefix+"/signal", s.MakeHTTPHandleFunc(signalingEndpoints.Websocket))
		mux.HandleFunc(prefix+"/connect-token", s.MakeHTTPHandleFunc(signalingEndpoints.ConnectToken))
	}
}
