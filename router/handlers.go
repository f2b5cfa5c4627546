package router

import (
    "encoding/json"
    "errors"
    "net/http"
    "strings"

    "parlor/appcontext"
    "parlor/auth"
    "parlor/db"
)

// API bundles the handlers around the account and catalog routes.
type API struct {
    Auth  *auth.Manager
    Rooms []string
}

func NewAPI(authManager *auth.Manager, rooms []string) *API {
    return &API{Auth: authManager, Rooms: rooms}
}

type credentialsRequest struct {
    Username string `json:"username"`
    Password string `json:"password"`
}

func (a *API) SignupHandler(ctx *appcontext.AppContext) {
    var req credentialsRequest
    if err := json.NewDecoder(ctx.Request.Body).Decode(&req); err != nil {
        http.Error(ctx.Writer, "Invalid JSON", http.StatusBadRequest)
        return
    }

    req.Username = strings.TrimSpace(req.Username)
    if req.Username == "" || req.Password == "" {
        http.Error(ctx.Writer, "Username and password are required", http.StatusBadRequest)
        return
    }

    hashedPassword, err := a.Auth.HashPassword(req.Password)
    if err != nil {
        ctx.Logger.Printf("Failed to hash password: %v", err)
        http.Error(ctx.Writer, "Error hashing password", http.StatusInternalServerError)
        return
    }

    if err := db.InsertUser(ctx.Pool, ctx.Context, req.Username, hashedPassword); err != nil {
        // Unique constraint on username makes duplicates a client error.
        http.Error(ctx.Writer, "User exists", http.StatusBadRequest)
        return
    }

    ctx.Writer.WriteHeader(http.StatusCreated)
    ctx.Writer.Write([]byte("User registered"))
}

func (a *API) LoginHandler(ctx *appcontext.AppContext) {
    var req credentialsRequest
    if err := json.NewDecoder(ctx.Request.Body).Decode(&req); err != nil {
        http.Error(ctx.Writer, "Invalid JSON", http.StatusBadRequest)
        return
    }

    user, err := db.GetUserByUsername(ctx.Pool, ctx.Context, req.Username)
    if err != nil {
        if errors.Is(err, db.ErrNoUser) {
            http.Error(ctx.Writer, "Invalid credentials", http.StatusUnauthorized)
            return
        }
        ctx.Logger.Printf("Error querying user: %v", err)
        http.Error(ctx.Writer, "Database error", http.StatusInternalServerError)
        return
    }

    if err := a.Auth.VerifyPassword(user.Password, req.Password); err != nil {
        http.Error(ctx.Writer, "Invalid credentials", http.StatusUnauthorized)
        return
    }

    token, err := a.Auth.Issue(user.Username)
    if err != nil {
        ctx.Logger.Printf("Failed to issue token for %s: %v", user.Username, err)
        http.Error(ctx.Writer, "Authentication error", http.StatusInternalServerError)
        return
    }

    ctx.Writer.Header().Set("Content-Type", "application/json")
    json.NewEncoder(ctx.Writer).Encode(map[string]string{"token": token})
}

// RoomsHandler returns the static room catalog. Join requests are not
// validated against it.
func (a *API) RoomsHandler(ctx *appcontext.AppContext) {
    ctx.Writer.Header().Set("Content-Type", "application/json")
    json.NewEncoder(ctx.Writer).Encode(a.Rooms)
}
