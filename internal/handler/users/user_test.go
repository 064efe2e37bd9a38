package users

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jkopstals/dingo-api/internal/database"
	"github.com/jkopstals/dingo-api/internal/importer"
	"github.com/jkopstals/dingo-api/internal/middleware"
	"github.com/jkopstals/dingo-api/internal/model"
	"github.com/jkopstals/dingo-api/internal/rules"
	"github.com/jkopstals/dingo-api/internal/service"
	"github.com/jkopstals/dingo-api/internal/store"
	"github.com/jkopstals/dingo-api/internal/validation"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

func newFormCtx(e *echo.Echo, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func newParamCtx(e *echo.Echo, method, val string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, "/users/"+val, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/users/:id")
	c.SetParamNames("id")
	c.SetParamValues(val)
	return c, rec
}

func newUpdateCtx(e *echo.Echo, id, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodPost, "/users/"+id, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/users/:id")
	c.SetParamNames("id")
	c.SetParamValues(id)
	return c, rec
}

func restore() {
	applyRules = validation.Apply
	hashPassword = service.HashPassword
	createUser = store.CreateUser
	getUserByID = store.GetUserByID
	listUsers = store.ListUsers
	countUsers = store.CountUsers
	updateUser = store.UpdateUser
	deleteUser = store.DeleteUser
	runImport = importer.Run
}

func stubValidRules() {
	applyRules = func(context.Context, database.DB, map[string]string, rules.Set) (map[string][]string, error) {
		return map[string][]string{}, nil
	}
}

func TestCreateUserHandler(t *testing.T) {
	e := echo.New()
	now := time.Now().UTC()

	t.Run("bind error", func(t *testing.T) {
		t.Cleanup(restore)
		ctx, rec := newFormCtx(e, "%")
		require.NoError(t, CreateUserHandler(nil)(ctx))
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Contains(t, rec.Body.String(), "invalid form data")
	})

	t.Run("validation failure returns every violation", func(t *testing.T) {
		t.Cleanup(restore)
		applyRules = func(_ context.Context, _ database.DB, fields map[string]string, set rules.Set) (map[string][]string, error) {
			require.Equal(t, "a", fields["name"])
			require.Contains(t, set.Fields, "password_confirmation")
			return map[string][]string{
				"name":  {"The name must be at least 2 characters."},
				"email": {"The email must be a valid email address."},
			}, nil
		}
		ctx, rec := newFormCtx(e, "name=a&email=bad&password=x&password_confirmation=x")
		require.NoError(t, CreateUserHandler(nil)(ctx))
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		require.Contains(t, rec.Body.String(), "The name must be at least 2 characters.")
		require.Contains(t, rec.Body.String(), "The email must be a valid email address.")
	})

	t.Run("rule evaluation error", func(t *testing.T) {
		t.Cleanup(restore)
		applyRules = func(context.Context, database.DB, map[string]string, rules.Set) (map[string][]string, error) {
			return nil, errors.New("db down")
		}
		ctx, rec := newFormCtx(e, "name=Alice&email=a@b.com&password=password1&password_confirmation=password1")
		require.NoError(t, CreateUserHandler(nil)(ctx))
		require.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("hash error", func(t *testing.T) {
		t.Cleanup(restore)
		stubValidRules()
		hashPassword = func(string) (string, error) { return "", errors.New("hash") }
		ctx, rec := newFormCtx(e, "name=Alice&email=a@b.com&password=password1&password_confirmation=password1")
		require.NoError(t, CreateUserHandler(nil)(ctx))
		require.Equal(t, http.StatusInternalServerError, rec.Code)
		require.Contains(t, rec.Body.String(), "failed to hash password")
	})

	t.Run("duplicate race", func(t *testing.T) {
		t.Cleanup(restore)
		stubValidRules()
		hashPassword = func(string) (string, error) { return "h", nil }
		createUser = func(context.Context, database.DB, *model.User) (*model.User, error) {
			return nil, store.ErrDuplicateEmail
		}
		ctx, rec := newFormCtx(e, "name=Alice&email=a@b.com&password=password1&password_confirmation=password1")
		require.NoError(t, CreateUserHandler(nil)(ctx))
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		require.Contains(t, rec.Body.String(), "The email has already been taken.")
	})

	t.Run("create error", func(t *testing.T) {
		t.Cleanup(restore)
		stubValidRules()
		hashPassword = func(string) (string, error) { return "h", nil }
		createUser = func(context.Context, database.DB, *model.User) (*model.User, error) {
			return nil, errors.New("c")
		}
		ctx, rec := newFormCtx(e, "name=Alice&email=a@b.com&password=password1&password_confirmation=password1")
		require.NoError(t, CreateUserHandler(nil)(ctx))
		require.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("success", func(t *testing.T) {
		t.Cleanup(restore)
		stubValidRules()
		hashPassword = func(p string) (string, error) { require.Equal(t, "password1", p); return "h", nil }
		var gotEmail string
		createUser = func(_ context.Context, _ database.DB, u *model.User) (*model.User, error) {
			gotEmail = u.Email
			require.Equal(t, "h", u.PasswordHash)
			u.ID = 1
			u.CreatedAt = now
			u.UpdatedAt = now
			return u, nil
		}
		ctx, rec := newFormCtx(e, "name=Alice&email=Alice@EXAMPLE.com&password=password1&password_confirmation=password1")
		require.NoError(t, CreateUserHandler(nil)(ctx))
		require.Equal(t, http.StatusCreated, rec.Code)
		require.Equal(t, "alice@example.com", gotEmail)
		require.Contains(t, rec.Body.String(), "\"data\"")
		require.Contains(t, rec.Body.String(), "\"id\":1")
		// 密碼不得出現在回應
		require.NotContains(t, rec.Body.String(), "password")
	})
}

func TestGetUserHandler(t *testing.T) {
	e := echo.New()

	t.Run("invalid id", func(t *testing.T) {
		t.Cleanup(restore)
		ctx, rec := newParamCtx(e, http.MethodGet, "abc")
		require.NoError(t, GetUserHandler(nil)(ctx))
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("not found", func(t *testing.T) {
		t.Cleanup(restore)
		getUserByID = func(context.Context, database.DB, int) (*model.User, error) {
			return nil, store.ErrNotFound
		}
		ctx, rec := newParamCtx(e, http.MethodGet, "99")
		require.NoError(t, GetUserHandler(nil)(ctx))
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("store error", func(t *testing.T) {
		t.Cleanup(restore)
		getUserByID = func(context.Context, database.DB, int) (*model.User, error) {
			return nil, errors.New("boom")
		}
		ctx, rec := newParamCtx(e, http.MethodGet, "1")
		require.NoError(t, GetUserHandler(nil)(ctx))
		require.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("success", func(t *testing.T) {
		t.Cleanup(restore)
		getUserByID = func(_ context.Context, _ database.DB, id int) (*model.User, error) {
			require.Equal(t, 7, id)
			return &model.User{ID: 7, Name: "Alice", Email: "alice@example.com"}, nil
		}
		ctx, rec := newParamCtx(e, http.MethodGet, "7")
		require.NoError(t, GetUserHandler(nil)(ctx))
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), "alice@example.com")
	})
}

func TestListUsersHandler(t *testing.T) {
	e := echo.New()

	newListCtx := func(target string) (echo.Context, *httptest.ResponseRecorder) {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		rec := httptest.NewRecorder()
		return e.NewContext(req, rec), rec
	}

	t.Run("defaults", func(t *testing.T) {
		t.Cleanup(restore)
		listUsers = func(_ context.Context, _ database.DB, limit, offset int) ([]model.User, error) {
			require.Equal(t, 10, limit)
			require.Equal(t, 0, offset)
			return []model.User{{ID: 1}, {ID: 2}}, nil
		}
		countUsers = func(context.Context, database.DB) (int, error) { return 51, nil }
		ctx, rec := newListCtx("/users")
		require.NoError(t, ListUsersHandler(nil)(ctx))
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), "\"total\":51")
		require.Contains(t, rec.Body.String(), "\"count\":2")
		require.Contains(t, rec.Body.String(), "\"total_pages\":6")
		require.Contains(t, rec.Body.String(), "\"current_page\":1")
		require.NotContains(t, rec.Body.String(), "previous")
		require.Contains(t, rec.Body.String(), "page=2")
	})

	t.Run("middle page has both links", func(t *testing.T) {
		t.Cleanup(restore)
		listUsers = func(_ context.Context, _ database.DB, limit, offset int) ([]model.User, error) {
			require.Equal(t, 5, limit)
			require.Equal(t, 5, offset)
			return []model.User{{ID: 6}}, nil
		}
		countUsers = func(context.Context, database.DB) (int, error) { return 15, nil }
		ctx, rec := newListCtx("/users?page=2&limit=5")
		require.NoError(t, ListUsersHandler(nil)(ctx))
		require.Contains(t, rec.Body.String(), "page=1")
		require.Contains(t, rec.Body.String(), "page=3")
	})

	t.Run("list error", func(t *testing.T) {
		t.Cleanup(restore)
		listUsers = func(context.Context, database.DB, int, int) ([]model.User, error) {
			return nil, errors.New("q")
		}
		ctx, rec := newListCtx("/users")
		require.NoError(t, ListUsersHandler(nil)(ctx))
		require.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("count error", func(t *testing.T) {
		t.Cleanup(restore)
		listUsers = func(context.Context, database.DB, int, int) ([]model.User, error) { return nil, nil }
		countUsers = func(context.Context, database.DB) (int, error) { return 0, errors.New("c") }
		ctx, rec := newListCtx("/users")
		require.NoError(t, ListUsersHandler(nil)(ctx))
		require.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestUpdateUserHandler(t *testing.T) {
	e := echo.New()
	body := "name=Alice&email=Alice@EXAMPLE.com&password=password1&password_confirmation=password1"

	t.Run("invalid id", func(t *testing.T) {
		t.Cleanup(restore)
		ctx, rec := newUpdateCtx(e, "abc", body)
		require.NoError(t, UpdateUserHandler(nil)(ctx))
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("not found", func(t *testing.T) {
		t.Cleanup(restore)
		getUserByID = func(context.Context, database.DB, int) (*model.User, error) {
			return nil, store.ErrNotFound
		}
		ctx, rec := newUpdateCtx(e, "99", body)
		require.NoError(t, UpdateUserHandler(nil)(ctx))
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("validation failure", func(t *testing.T) {
		t.Cleanup(restore)
		getUserByID = func(context.Context, database.DB, int) (*model.User, error) {
			return &model.User{ID: 7}, nil
		}
		applyRules = func(_ context.Context, _ database.DB, _ map[string]string, set rules.Set) (map[string][]string, error) {
			// 更新規則集必須排除自己
			require.Equal(t, 7, set.ExcludeID)
			return map[string][]string{"email": {"The email has already been taken."}}, nil
		}
		ctx, rec := newUpdateCtx(e, "7", body)
		require.NoError(t, UpdateUserHandler(nil)(ctx))
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("update error", func(t *testing.T) {
		t.Cleanup(restore)
		getUserByID = func(context.Context, database.DB, int) (*model.User, error) {
			return &model.User{ID: 7}, nil
		}
		stubValidRules()
		hashPassword = func(string) (string, error) { return "h", nil }
		updateUser = func(context.Context, database.DB, *model.User) error { return errors.New("u") }
		ctx, rec := newUpdateCtx(e, "7", body)
		require.NoError(t, UpdateUserHandler(nil)(ctx))
		require.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("duplicate email at persist returns 422", func(t *testing.T) {
		t.Cleanup(restore)
		getUserByID = func(context.Context, database.DB, int) (*model.User, error) {
			return &model.User{ID: 7}, nil
		}
		stubValidRules()
		hashPassword = func(string) (string, error) { return "h", nil }
		updateUser = func(context.Context, database.DB, *model.User) error {
			return store.ErrDuplicateEmail
		}
		ctx, rec := newUpdateCtx(e, "7", body)
		require.NoError(t, UpdateUserHandler(nil)(ctx))
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		require.Contains(t, rec.Body.String(), "The email has already been taken.")
	})

	t.Run("success applies fillable fields only", func(t *testing.T) {
		t.Cleanup(restore)
		calls := 0
		getUserByID = func(_ context.Context, _ database.DB, id int) (*model.User, error) {
			calls++
			if calls == 1 {
				return &model.User{ID: 7, Name: "Old", Email: "old@example.com", PasswordHash: "oldhash"}, nil
			}
			return &model.User{ID: 7, Name: "Alice", Email: "alice@example.com"}, nil
		}
		stubValidRules()
		hashPassword = func(string) (string, error) { return "newhash", nil }
		var saved model.User
		updateUser = func(_ context.Context, _ database.DB, u *model.User) error {
			saved = *u
			return nil
		}
		ctx, rec := newUpdateCtx(e, "7", body)
		require.NoError(t, UpdateUserHandler(nil)(ctx))
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "Alice", saved.Name)
		require.Equal(t, "alice@example.com", saved.Email)
		require.Equal(t, "newhash", saved.PasswordHash)
		require.Contains(t, rec.Body.String(), "alice@example.com")
	})
}

func TestDeleteUserHandler(t *testing.T) {
	e := echo.New()

	t.Run("invalid id", func(t *testing.T) {
		t.Cleanup(restore)
		ctx, rec := newParamCtx(e, http.MethodDelete, "abc")
		require.NoError(t, DeleteUserHandler(nil)(ctx))
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	// 刪除不存在的 ID 是 404，不是 500
	t.Run("not found", func(t *testing.T) {
		t.Cleanup(restore)
		getUserByID = func(context.Context, database.DB, int) (*model.User, error) {
			return nil, store.ErrNotFound
		}
		ctx, rec := newParamCtx(e, http.MethodDelete, "99")
		require.NoError(t, DeleteUserHandler(nil)(ctx))
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("delete error", func(t *testing.T) {
		t.Cleanup(restore)
		getUserByID = func(context.Context, database.DB, int) (*model.User, error) {
			return &model.User{ID: 7}, nil
		}
		deleteUser = func(context.Context, database.DB, int) error { return errors.New("d") }
		ctx, rec := newParamCtx(e, http.MethodDelete, "7")
		require.NoError(t, DeleteUserHandler(nil)(ctx))
		require.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("success", func(t *testing.T) {
		t.Cleanup(restore)
		getUserByID = func(context.Context, database.DB, int) (*model.User, error) {
			return &model.User{ID: 7}, nil
		}
		deleteUser = func(_ context.Context, _ database.DB, id int) error {
			require.Equal(t, 7, id)
			return nil
		}
		ctx, rec := newParamCtx(e, http.MethodDelete, "7")
		require.NoError(t, DeleteUserHandler(nil)(ctx))
		require.Equal(t, http.StatusNoContent, rec.Code)
	})
}

func TestMeHandler(t *testing.T) {
	e := echo.New()

	newMeCtx := func(claims *service.CustomClaims) (echo.Context, *httptest.ResponseRecorder) {
		req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		if claims != nil {
			c.Set(middleware.ContextUserKey, claims)
		}
		return c, rec
	}

	t.Run("missing claims", func(t *testing.T) {
		t.Cleanup(restore)
		ctx, rec := newMeCtx(nil)
		require.NoError(t, MeHandler(nil)(ctx))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("user gone", func(t *testing.T) {
		t.Cleanup(restore)
		getUserByID = func(context.Context, database.DB, int) (*model.User, error) {
			return nil, store.ErrNotFound
		}
		ctx, rec := newMeCtx(&service.CustomClaims{UserID: 5})
		require.NoError(t, MeHandler(nil)(ctx))
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("success", func(t *testing.T) {
		t.Cleanup(restore)
		getUserByID = func(_ context.Context, _ database.DB, id int) (*model.User, error) {
			require.Equal(t, 5, id)
			return &model.User{ID: 5, Email: "me@example.com"}, nil
		}
		ctx, rec := newMeCtx(&service.CustomClaims{UserID: 5})
		require.NoError(t, MeHandler(nil)(ctx))
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), "me@example.com")
	})
}

func TestRulesHandler(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/users/rules", nil)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)

	require.NoError(t, RulesHandler()(ctx))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "string|required|min:2")
	require.Contains(t, rec.Body.String(), "email|required|unique:users")
	require.Contains(t, rec.Body.String(), "required|same:password")
}
