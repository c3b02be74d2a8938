package config

type App struct {
	Port             string `env:"APP_PORT" default:"8080"`
	ProductsTableURL string `env:"PRODUCTS_TABLE_URL,required"`
	BookingTableURL  string `env:"BOOKING_TABLE_URL,required"`
	NocoDBToken      string `env:"NOCODB_API_TOKEN,required"`
	Env              string `env:"APP_ENV" default:"dev"`
}
