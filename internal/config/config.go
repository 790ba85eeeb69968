package config

import "time"

type Config struct {
	Environment Environment
	Log         Log
	HTTP        HTTPServer
	BaseURL     string `env:"BASE_URL"`
	DatabaseURL string `env:"DATABASE_URL"`
	JWTSecret   string `env:"JWT_SECRET,required"`
	AMQPURL     string `env:"AMQP_URL"`

	Stripe   Stripe   `envPrefix:"STRIPE_"`
	Checkout Checkout `envPrefix:"CHECKOUT_"`
}

// Stripe credentials come from the environment only; the webhook secret in
// particular must never appear in source.
type Stripe struct {
	BaseApiURL    string `env:"BASE_API_URL" envDefault:"https://api.stripe.com"`
	SecretKey     string `env:"SECRET_KEY,required"`
	WebhookSecret string `env:"WEBHOOK_SECRET,required"`
}

type Checkout struct {
	Currency          string        `env:"CURRENCY" envDefault:"usd"`
	TaxRate           string        `env:"TAX_RATE" envDefault:"0.08"`
	ShippingFee       string        `env:"SHIPPING_FEE" envDefault:"5.00"`
	FreeShippingAbove string        `env:"FREE_SHIPPING_ABOVE" envDefault:"50.00"`
	SessionCartTTL    time.Duration `env:"SESSION_CART_TTL" envDefault:"72h"`
}

type Environment struct {
	Name string `env:"ENVIRONMENT" envDefault:"development"`
}

type Log struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

type HTTPServer struct {
	Host string `env:"HTTP_HOST" envDefault:"0.0.0.0"`
	Port string `env:"HTTP_PORT" envDefault:"8080"`
}
