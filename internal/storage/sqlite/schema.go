package sqlite

const schemaSQL = `
CREATE TABLE IF NOT EXISTS users (
  id         INTEGER PRIMARY KEY AUTOINCREMENT,
  email      TEXT NOT NULL UNIQUE,
  name       TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS cities (
  id              INTEGER PRIMARY KEY AUTOINCREMENT,
  user_id         INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  name            TEXT NOT NULL,
  normalized_name TEXT NOT NULL,
  created_at      TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
  updated_at      TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
  UNIQUE (user_id, normalized_name)
);

CREATE TABLE IF NOT EXISTS hotels (
  id         INTEGER PRIMARY KEY AUTOINCREMENT,
  user_id    INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  city_id    INTEGER NOT NULL REFERENCES cities(id) ON DELETE CASCADE,
  hotel_name TEXT NOT NULL,
  category   TEXT NOT NULL,
  created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
  updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS hotel_pricing (
  id                INTEGER PRIMARY KEY AUTOINCREMENT,
  hotel_id          INTEGER NOT NULL REFERENCES hotels(id) ON DELETE CASCADE,
  start_date        DATE NULL,
  end_date          DATE NULL,
  pp_dbl_rate       REAL NOT NULL,
  single_supplement REAL NULL,
  child_0to2        REAL NULL,
  child_3to5        REAL NULL,
  child_6to11       REAL NULL,
  created_at        TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
  updated_at        TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS sic_tours (
  id         INTEGER PRIMARY KEY AUTOINCREMENT,
  user_id    INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  city_id    INTEGER NOT NULL REFERENCES cities(id) ON DELETE CASCADE,
  tour_name  TEXT NOT NULL,
  created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
  updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS sic_tour_pricing (
  id                INTEGER PRIMARY KEY AUTOINCREMENT,
  tour_id           INTEGER NOT NULL REFERENCES sic_tours(id) ON DELETE CASCADE,
  start_date        DATE NULL,
  end_date          DATE NULL,
  pp_dbl_rate       REAL NOT NULL,
  single_supplement REAL NULL,
  child_0to2        REAL NULL,
  child_3to5        REAL NULL,
  child_6to11       REAL NULL,
  created_at        TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
  updated_at        TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS sightseeing_fees (
  id         INTEGER PRIMARY KEY AUTOINCREMENT,
  user_id    INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  city_id    INTEGER NOT NULL REFERENCES cities(id) ON DELETE CASCADE,
  place_name TEXT NOT NULL,
  price      REAL NOT NULL,
  created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
  updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS transfers (
  id            INTEGER PRIMARY KEY AUTOINCREMENT,
  user_id       INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  city_id       INTEGER NOT NULL REFERENCES cities(id) ON DELETE CASCADE,
  transfer_type TEXT NOT NULL,
  price         REAL NOT NULL,
  created_at    TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
  updated_at    TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS restaurants (
  id              INTEGER PRIMARY KEY AUTOINCREMENT,
  user_id         INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  city_id         INTEGER NOT NULL REFERENCES cities(id) ON DELETE CASCADE,
  restaurant_name TEXT NOT NULL,
  created_at      TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
  updated_at      TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS restaurant_menu_pricing (
  id            INTEGER PRIMARY KEY AUTOINCREMENT,
  restaurant_id INTEGER NOT NULL REFERENCES restaurants(id) ON DELETE CASCADE,
  menu_option   TEXT NOT NULL,
  price         REAL NOT NULL,
  start_date    DATE NULL,
  end_date      DATE NULL,
  created_at    TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
  updated_at    TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_hotels_user_city ON hotels (user_id, city_id);
CREATE INDEX IF NOT EXISTS idx_sic_tours_user_city ON sic_tours (user_id, city_id);
CREATE INDEX IF NOT EXISTS idx_sightseeing_user_city ON sightseeing_fees (user_id, city_id);
CREATE INDEX IF NOT EXISTS idx_transfers_user_city ON transfers (user_id, city_id);
CREATE INDEX IF NOT EXISTS idx_restaurants_user_city ON restaurants (user_id, city_id);
CREATE INDEX IF NOT EXISTS idx_hotel_pricing_parent ON hotel_pricing (hotel_id, start_date);
CREATE INDEX IF NOT EXISTS idx_sic_tour_pricing_parent ON sic_tour_pricing (tour_id, start_date);
CREATE INDEX IF NOT EXISTS idx_menu_pricing_parent ON restaurant_menu_pricing (restaurant_id, start_date)
`
