package version

import "fmt"

// service — имя сервиса для стартового лога и ClientID брокера.
const service = "storefront-cart-service"

// Заполняются через -ldflags при сборке.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Service возвращает имя сервиса.
func Service() string { return service }

// Info возвращает версию, коммит и дату сборки.
func Info() (v, c, d string) { return version, commit, date }

// String собирает строку для стартового лога и health-эндпоинта.
func String() string {
	return fmt.Sprintf("%s version=%s commit=%s date=%s", service, version, commit, date)
}
