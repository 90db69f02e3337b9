package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/AbobaRoblox/Unfiltered-RP-Forum/internal/auth"
	"github.com/AbobaRoblox/Unfiltered-RP-Forum/internal/models"
	pkghttp "github.com/AbobaRoblox/Unfiltered-RP-Forum/pkg/http"
)

// maxBodyBytes bounds request bodies; the largest field is 10000 runes of content
const maxBodyBytes = 1 << 20

// decodeJSON reads the body into dst and validates it
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		pkghttp.WriteBadRequest(w, "Некорректный запрос")
		return false
	}
	if err := ValidateRequest(dst); err != nil {
		writeServiceError(w, err)
		return false
	}
	return true
}

// currentUserID returns the authenticated caller or writes 401
func currentUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	claims := auth.GetUserFromContext(r)
	if claims == nil || claims.UserID == "" {
		pkghttp.WriteUnauthorized(w, "Требуется авторизация")
		return "", false
	}
	return claims.UserID, true
}

func queryInt(r *http.Request, key string) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return 0
	}
	return v
}

func mutedMessage(reason string) string {
	if reason == "" {
		reason = "Не указана"
	}
	return "Вы замучены и не можете публиковать. Причина: " + reason
}

// writeServiceError maps service errors onto HTTP responses
func writeServiceError(w http.ResponseWriter, err error) {
	var validation *models.ValidationError
	var banned *models.AccountBannedError
	var muted *models.MutedError

	switch {
	case errors.As(err, &validation):
		pkghttp.WriteValidationError(w, validation.Message, validation.Field)
	case errors.Is(err, models.ErrEmptyText):
		pkghttp.WriteValidationError(w, "Текст не может быть пустым", "text")
	case errors.Is(err, models.ErrTooLong):
		pkghttp.WriteValidationError(w, "Слишком длинный текст", "text")
	case errors.Is(err, models.ErrInvalidCode):
		pkghttp.WriteError(w, http.StatusBadRequest, "invalid_code", "Неверный или просроченный код")
	case errors.Is(err, models.ErrBadRequest):
		pkghttp.WriteBadRequest(w, "Некорректный запрос")
	case errors.Is(err, models.ErrInvalidCredentials):
		pkghttp.WriteError(w, http.StatusUnauthorized, "invalid_credentials", "Неверное имя пользователя или пароль")
	case errors.Is(err, models.ErrUnauthorized):
		pkghttp.WriteUnauthorized(w, "Требуется авторизация")
	case errors.As(err, &banned):
		msg := "Ваш аккаунт заблокирован"
		if banned.Reason != "" {
			msg += ". Причина: " + banned.Reason
		}
		pkghttp.WriteError(w, http.StatusForbidden, "account_banned", msg)
	case errors.As(err, &muted):
		pkghttp.WriteError(w, http.StatusForbidden, "muted", mutedMessage(muted.Reason))
	case errors.Is(err, models.ErrMuted):
		pkghttp.WriteError(w, http.StatusForbidden, "muted", mutedMessage(""))
	case errors.Is(err, models.ErrForbidden):
		pkghttp.WriteForbidden(w, "Недостаточно прав")
	case errors.Is(err, models.ErrUserNotFound):
		pkghttp.WriteNotFound(w, "Пользователь не найден")
	case errors.Is(err, models.ErrPostNotFound):
		pkghttp.WriteNotFound(w, "Тема не найдена")
	case errors.Is(err, models.ErrApplicationNotFound):
		pkghttp.WriteNotFound(w, "Заявка не найдена")
	case errors.Is(err, models.ErrVerificationNotFound):
		pkghttp.WriteNotFound(w, "Запрос на верификацию не найден")
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, "Не найдено")
	case errors.Is(err, models.ErrDuplicateAccount):
		pkghttp.WriteConflict(w, "Пользователь с таким именем или email уже существует")
	case errors.Is(err, models.ErrAlreadyReviewed):
		pkghttp.WriteConflict(w, "Запрос уже рассмотрен")
	case errors.Is(err, models.ErrInvalidTransition):
		pkghttp.WriteConflict(w, "Недопустимая смена статуса")
	case errors.Is(err, models.ErrVerificationPending):
		pkghttp.WriteConflict(w, "У вас уже есть запрос на рассмотрении")
	case errors.Is(err, models.ErrApplicationPending):
		pkghttp.WriteConflict(w, "У вас уже есть заявка на рассмотрении")
	case errors.Is(err, models.ErrApplicantChanged):
		pkghttp.WriteConflict(w, "Роль пользователя изменилась, заявку нужно отклонить")
	case errors.Is(err, models.ErrNickChanged):
		pkghttp.WriteConflict(w, "Пользователь сменил ник после подачи запроса")
	case errors.Is(err, models.ErrConflict):
		pkghttp.WriteConflict(w, "Конфликт данных")
	case errors.Is(err, models.ErrCodeCooldown):
		pkghttp.WriteTooManyRequests(w, "Код уже отправлен, попробуйте позже")
	default:
		pkghttp.WriteInternalError(w, "Ошибка сервера")
	}
}
