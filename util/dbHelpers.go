package util

import (
	"fmt"
)

func ddlStrings() []string {
	sqlStrings := []string{}
	sqlStrings = append(sqlStrings,
		`CREATE TABLE IF NOT EXISTS users (
    id SERIAL PRIMARY KEY,
    username VARCHAR(150) UNIQUE NOT NULL,
    email VARCHAR(254),
    password VARCHAR(512),
    role VARCHAR(20) NOT NULL CHECK(role='student' or role='lecturer' or role='admin') DEFAULT 'student',
    password_changed_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    deleted BOOLEAN DEFAULT false,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`,
		`CREATE TABLE IF NOT EXISTS lecturer_accounts (
    id SERIAL PRIMARY KEY,
    user_id INT UNIQUE NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    name VARCHAR(255) NOT NULL,
    department VARCHAR(255) NOT NULL,
    faculty VARCHAR(255) NOT NULL,
    phone VARCHAR(20) NOT NULL,
    bio TEXT,
    is_verified BOOLEAN DEFAULT false,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`,
		`CREATE TABLE IF NOT EXISTS courses (
    id SERIAL PRIMARY KEY,
    name VARCHAR(255) NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    status VARCHAR(20) NOT NULL DEFAULT 'approved',
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`,
		`CREATE TABLE IF NOT EXISTS questions (
    id SERIAL PRIMARY KEY,
    course_id INT NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
    question_text TEXT NOT NULL,
    option_a VARCHAR(255) NOT NULL DEFAULT '',
    option_b VARCHAR(255) NOT NULL DEFAULT '',
    option_c VARCHAR(255) NOT NULL DEFAULT '',
    option_d VARCHAR(255) NOT NULL DEFAULT '',
    correct_option CHAR(1) CHECK (correct_option IN ('A','B','C','D')),
    year VARCHAR(255) NOT NULL DEFAULT '2019',
    source_file VARCHAR(255),
    status VARCHAR(20) NOT NULL CHECK (status IN ('pending','approved','rejected')) DEFAULT 'pending',
    uploaded_by_id INT REFERENCES users(id) ON DELETE SET NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`,
		`CREATE TABLE IF NOT EXISTS test_sessions (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    user_id INT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    course_id INT NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
    question_count INT NOT NULL,
    duration INT NOT NULL,
    start_time TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    end_time TIMESTAMP,
    score INT
)`,
		`CREATE TABLE IF NOT EXISTS test_session_questions (
    test_session_id UUID REFERENCES test_sessions(id) ON DELETE CASCADE,
    question_id INT REFERENCES questions(id) ON DELETE CASCADE,
    position INT NOT NULL,
    chosen_option CHAR(1),
    PRIMARY KEY (test_session_id, question_id)
)`,
		`CREATE TABLE IF NOT EXISTS group_tests (
    id SERIAL PRIMARY KEY,
    name VARCHAR(255) NOT NULL,
    course_id INT NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
    question_count INT NOT NULL,
    duration_minutes INT NOT NULL,
    created_by_id INT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    invitees TEXT NOT NULL DEFAULT '',
    scheduled_start TIMESTAMP NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`,
		`CREATE TABLE IF NOT EXISTS group_test_sessions (
    group_test_id INT REFERENCES group_tests(id) ON DELETE CASCADE,
    user_id INT REFERENCES users(id) ON DELETE CASCADE,
    test_session_id UUID NOT NULL REFERENCES test_sessions(id) ON DELETE CASCADE,
    PRIMARY KEY (group_test_id, user_id)
)`,
		`CREATE TABLE IF NOT EXISTS materials (
    id SERIAL PRIMARY KEY,
    course_id INT NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
    name VARCHAR(255) NOT NULL,
    tags VARCHAR(255) NOT NULL DEFAULT '',
    file_url TEXT NOT NULL,
    object_key TEXT NOT NULL,
    uploaded_by_id INT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    uploaded_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`,
		`CREATE TABLE IF NOT EXISTS updates (
    id SERIAL PRIMARY KEY,
    title VARCHAR(255) NOT NULL,
    slug VARCHAR(255) UNIQUE NOT NULL,
    body TEXT NOT NULL,
    author_id INT REFERENCES users(id) ON DELETE SET NULL,
    published BOOLEAN DEFAULT true,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`,
		`CREATE TABLE IF NOT EXISTS update_comments (
    id SERIAL PRIMARY KEY,
    update_id INT NOT NULL REFERENCES updates(id) ON DELETE CASCADE,
    user_id INT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    parent_id INT REFERENCES update_comments(id) ON DELETE CASCADE,
    body TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`,
		`CREATE TABLE IF NOT EXISTS update_likes (
    user_id INT REFERENCES users(id) ON DELETE CASCADE,
    update_id INT REFERENCES updates(id) ON DELETE CASCADE,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (user_id, update_id)
)`,
		`CREATE TABLE IF NOT EXISTS update_read_states (
    user_id INT REFERENCES users(id) ON DELETE CASCADE,
    update_id INT REFERENCES updates(id) ON DELETE CASCADE,
    viewed BOOLEAN DEFAULT false,
    viewed_at TIMESTAMP,
    PRIMARY KEY (user_id, update_id)
)`,
		`CREATE TABLE IF NOT EXISTS activation_codes (
    id SERIAL PRIMARY KEY,
    code VARCHAR(32) UNIQUE NOT NULL,
    is_used BOOLEAN DEFAULT false,
    used_by_id INT REFERENCES users(id) ON DELETE SET NULL,
    used_at TIMESTAMP,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`,
		`CREATE TABLE IF NOT EXISTS user_activations (
    id SERIAL PRIMARY KEY,
    user_id INT UNIQUE NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    status VARCHAR(20) NOT NULL CHECK (status IN ('locked','unlocked')) DEFAULT 'locked',
    activation_code_id INT REFERENCES activation_codes(id) ON DELETE SET NULL,
    activated_at TIMESTAMP
)`,
		`CREATE TABLE IF NOT EXISTS monetization_settings (
    id SERIAL PRIMARY KEY,
    is_enabled BOOLEAN DEFAULT false,
    price NUMERIC(10,2) DEFAULT 0,
    currency VARCHAR(10) DEFAULT 'NGN',
    payment_info TEXT NOT NULL DEFAULT '',
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`,
		`CREATE TABLE IF NOT EXISTS email_messages (
    id SERIAL PRIMARY KEY,
    subject VARCHAR(255) NOT NULL,
    content TEXT NOT NULL,
    button_text VARCHAR(255) NOT NULL DEFAULT '',
    button_link VARCHAR(512) NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    sent_at TIMESTAMP
)`,
		`CREATE TABLE IF NOT EXISTS special_courses (
    id SERIAL PRIMARY KEY,
    title VARCHAR(255) NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    created_by_id INT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    start_time TIMESTAMP NOT NULL,
    end_time TIMESTAMP NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`,
		`CREATE TABLE IF NOT EXISTS special_questions (
    id SERIAL PRIMARY KEY,
    course_id INT NOT NULL REFERENCES special_courses(id) ON DELETE CASCADE,
    text TEXT NOT NULL,
    mark FLOAT NOT NULL DEFAULT 1
)`,
		`CREATE TABLE IF NOT EXISTS special_choices (
    id SERIAL PRIMARY KEY,
    question_id INT NOT NULL REFERENCES special_questions(id) ON DELETE CASCADE,
    text TEXT NOT NULL,
    is_correct BOOLEAN DEFAULT false
)`,
		`CREATE TABLE IF NOT EXISTS special_enrollments (
    id SERIAL PRIMARY KEY,
    course_id INT NOT NULL REFERENCES special_courses(id) ON DELETE CASCADE,
    user_id INT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    enrolled_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    started BOOLEAN DEFAULT false,
    submitted BOOLEAN DEFAULT false,
    submitted_at TIMESTAMP,
    score FLOAT,
    UNIQUE (course_id, user_id)
)`,
		`CREATE TABLE IF NOT EXISTS special_answers (
    enrollment_id INT REFERENCES special_enrollments(id) ON DELETE CASCADE,
    question_id INT REFERENCES special_questions(id) ON DELETE CASCADE,
    choice_id INT REFERENCES special_choices(id) ON DELETE SET NULL,
    PRIMARY KEY (enrollment_id, question_id)
)`)
	return sqlStrings
}

func CreateTableIfNotExists() error {
	sqlStrings := ddlStrings()
	for i, sql := range sqlStrings {
		_, err := DB.Exec(sql)
		if err != nil {
			return fmt.Errorf("error creating table %d: %w", i, err)
		}
	}
	return nil
}

func dropStatements() []string {
	return []string{
		"DROP TABLE IF EXISTS special_answers",
		"DROP TABLE IF EXISTS special_enrollments",
		"DROP TABLE IF EXISTS special_choices",
		"DROP TABLE IF EXISTS special_questions",
		"DROP TABLE IF EXISTS special_courses",
		"DROP TABLE IF EXISTS email_messages",
		"DROP TABLE IF EXISTS monetization_settings",
		"DROP TABLE IF EXISTS user_activations",
		"DROP TABLE IF EXISTS activation_codes",
		"DROP TABLE IF EXISTS update_read_states",
		"DROP TABLE IF EXISTS update_likes",
		"DROP TABLE IF EXISTS update_comments",
		"DROP TABLE IF EXISTS updates",
		"DROP TABLE IF EXISTS materials",
		"DROP TABLE IF EXISTS group_test_sessions",
		"DROP TABLE IF EXISTS group_tests",
		"DROP TABLE IF EXISTS test_session_questions",
		"DROP TABLE IF EXISTS test_sessions",
		"DROP TABLE IF EXISTS questions",
		"DROP TABLE IF EXISTS courses",
		"DROP TABLE IF EXISTS lecturer_accounts",
		"DROP TABLE IF EXISTS users",
	}
}

// DropTables removes every application table, dependents first. Integration
// tests call it to reset the schema before bootstrapping.
func DropTables() error {
	for i, sql := range dropStatements() {
		if _, err := DB.Exec(sql); err != nil {
			return fmt.Errorf("error dropping table %d: %w", i, err)
		}
	}
	return nil
}
