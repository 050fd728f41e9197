// Package wired provides a module-based dependency injection container and a
// per-request middleware pipeline for HTTP handlers.
//
// # Overview
//
// Applications declare classes, modules and routes up front. Apply resolves
// the module tree, creates one instance per provider, wires field
// dependencies and registers every route with an HTTP adapter. Each request
// then runs through interceptors, guards, pipes, the handler and the
// interceptors' leave functions, with filters handling any error.
//
// # Declaring Classes
//
// A class is a struct type declared with Injectable, Controller, GuardClass,
// InterceptorClass, PipeClass or FilterClass. Dependencies are exported
// fields, declared with an `inject` tag or with Inject:
//
//	type UserService struct {
//	    Repo   *UserRepository `inject:""`
//	    Logger wired.Logger    `inject:"APP_LOGGER"`
//	}
//
//	var UserServiceClass = wired.Injectable[UserService]()
//
// An empty tag injects the class of the field's type. Any other tag is a
// token name.
//
// # Modules
//
// A module lists providers, controllers, imports and exports:
//
//	var UsersModule = wired.NewModule("users",
//	    wired.Imports(DatabaseModule),
//	    wired.Providers(UserServiceClass),
//	    wired.Controllers(UsersControllerClass),
//	    wired.Exports(UserServiceClass),
//	    wired.Prefix("users"),
//	)
//
// A module can inject its own providers, the exports of its imports and
// global providers. Global providers are the exports of global modules and
// the reserved tokens AppLogger, AppGuard, AppInterceptor, AppPipe and
// AppFilter.
//
// # Tokens
//
// A token is a Name, a *Symbol, a class (a *ClassDef or Class[T]()) or a
// Deferred class. Classes are keyed by their type name: two struct types
// with the same name share one token.
//
// # Routes and Middleware
//
//	var UsersControllerClass = wired.Controller[UsersController]("users",
//	    wired.UseGuards(AuthGuardClass),
//	    wired.Get("", "List"),
//	    wired.Post("", "Create", wired.UsePipes(wired.Body(wired.SchemaOf[NewUser]()))),
//	)
//
// Middleware lists merge in the order global, controller, route. A guard
// returning false rejects the request with Forbidden. Without pipes the
// handler receives the *http.Request and the http.ResponseWriter. Errors
// are handed to the first filter that catches them; without one a 400 JSON
// response is written.
//
// # Registration
//
//	adapter := wiredhttp.New()
//	app, err := wired.Apply(adapter, wired.Options{RootModule: AppModule})
//
// Adapters for net/http, Chi, Echo, Gin and Fiber live in the http, chi,
// echo, gin and fiber subpackages.
//
// Module import cycles are errors. A module imported from two branches is
// an error too, unless AllowCrossModuleCircularReference is set. Field
// dependencies may form cycles: instances are created first and wired
// afterwards.
package wired
