package database

import "testing"

func TestRewritePlaceholdersToNumbered(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		expected string
	}{
		{
			name:     "no placeholders",
			query:    "SELECT 1",
			expected: "SELECT 1",
		},
		{
			name:     "single placeholder",
			query:    "SELECT * FROM classrooms WHERE code = ?",
			expected: "SELECT * FROM classrooms WHERE code = $1",
		},
		{
			name:     "multiple placeholders",
			query:    "INSERT INTO students (name, user_id) VALUES (?, ?)",
			expected: "INSERT INTO students (name, user_id) VALUES ($1, $2)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := rewritePlaceholdersToNumbered(tt.query)
			if result != tt.expected {
				t.Errorf("rewritePlaceholdersToNumbered() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestDialectDriverNames(t *testing.T) {
	tests := []struct {
		dialect Dialect
		driver  string
		subdir  string
	}{
		{NewSQLiteDialect(), "sqlite3", "sqlite"},
		{NewPostgresDialect(), "postgres", "postgres"},
		{NewMySQLDialect(), "mysql", "mysql"},
	}

	for _, tt := range tests {
		if got := tt.dialect.DriverName(); got != tt.driver {
			t.Errorf("DriverName() = %q, want %q", got, tt.driver)
		}
		if got := tt.dialect.MigrationsSubdir(); got != tt.subdir {
			t.Errorf("MigrationsSubdir() = %q, want %q", got, tt.subdir)
		}
	}
}

func TestRowLockClause(t *testing.T) {
	// Postgres and MySQL need an explicit row lock for read-check-write
	// transactions; SQLite's single writer makes one unnecessary
	if got := NewSQLiteDialect().RowLockClause(); got != "" {
		t.Errorf("sqlite RowLockClause() = %q, want empty", got)
	}
	if got := NewPostgresDialect().RowLockClause(); got != " FOR UPDATE" {
		t.Errorf("postgres RowLockClause() = %q, want \" FOR UPDATE\"", got)
	}
	if got := NewMySQLDialect().RowLockClause(); got != " FOR UPDATE" {
		t.Errorf("mysql RowLockClause() = %q, want \" FOR UPDATE\"", got)
	}
}

func TestMySQLDSNParameters(t *testing.T) {
	d := NewMySQLDialect()
	tests := []struct {
		name     string
		url      string
		expected string
	}{
		{
			name:     "bare url gains both parameters",
			url:      "user:pass@tcp(localhost:3306)/vocaroom",
			expected: "user:pass@tcp(localhost:3306)/vocaroom?parseTime=true&multiStatements=true",
		},
		{
			name:     "existing query string is extended",
			url:      "user:pass@tcp(localhost:3306)/vocaroom?charset=utf8mb4",
			expected: "user:pass@tcp(localhost:3306)/vocaroom?charset=utf8mb4&parseTime=true&multiStatements=true",
		},
		{
			name:     "explicit settings are kept",
			url:      "user:pass@tcp(localhost:3306)/vocaroom?parseTime=false&multiStatements=true",
			expected: "user:pass@tcp(localhost:3306)/vocaroom?parseTime=false&multiStatements=true",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := d.DSN(DialectConfig{URL: tt.url}); got != tt.expected {
				t.Errorf("DSN() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestPostgresRewriteQuery(t *testing.T) {
	d := NewPostgresDialect()
	got := d.RewriteQuery("UPDATE students SET total_time = total_time + ? WHERE id = ?")
	want := "UPDATE students SET total_time = total_time + $1 WHERE id = $2"
	if got != want {
		t.Errorf("RewriteQuery() = %q, want %q", got, want)
	}

	if NewSQLiteDialect().RewriteQuery("SELECT ?") != "SELECT ?" {
		t.Error("sqlite queries should not be rewritten")
	}
	if NewMySQLDialect().RewriteQuery("SELECT ?") != "SELECT ?" {
		t.Error("mysql queries should not be rewritten")
	}
}
