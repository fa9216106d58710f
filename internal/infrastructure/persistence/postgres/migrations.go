// Package postgres implements the PostgreSQL persistence layer of the
// curriculum engine.
package postgres

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: CREATE STUDENTS
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
-- Migration: Create students table
-- Version: 001

CREATE TABLE IF NOT EXISTS students (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    school_id UUID NOT NULL,
    teacher_id UUID,
    name VARCHAR(100) NOT NULL,
    english_name VARCHAR(100) NOT NULL DEFAULT '',
    grade VARCHAR(30) NOT NULL DEFAULT '',
    exp INTEGER NOT NULL DEFAULT 0,
    points INTEGER NOT NULL DEFAULT 0,
    level INTEGER NOT NULL DEFAULT 1,
    status VARCHAR(20) NOT NULL DEFAULT 'active',
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    deleted_at TIMESTAMP WITH TIME ZONE,

    -- Constraints for data integrity
    CONSTRAINT valid_status CHECK (status IN ('active', 'paused', 'graduated', 'left')),
    CONSTRAINT valid_exp CHECK (exp >= 0),
    CONSTRAINT valid_points CHECK (points >= 0),
    CONSTRAINT valid_level CHECK (level >= 1)
);

-- Indexes for common queries
CREATE INDEX IF NOT EXISTS idx_students_school_id ON students(school_id);
CREATE INDEX IF NOT EXISTS idx_students_teacher_id ON students(teacher_id);
CREATE INDEX IF NOT EXISTS idx_students_status ON students(status);
CREATE INDEX IF NOT EXISTS idx_students_name ON students(school_id, name);

-- Materializer lookup: active students of a teacher
CREATE INDEX IF NOT EXISTS idx_students_teacher_active
    ON students(school_id, teacher_id) WHERE status = 'active' AND deleted_at IS NULL;
`

const migration001Down = `
DROP TABLE IF EXISTS students;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: CREATE CURRICULUM
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
-- Migration: Create lesson plan publications and progress sources
-- Version: 002

-- Append-only lesson plan publications
CREATE TABLE IF NOT EXISTS lesson_plan_publications (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    school_id UUID NOT NULL,
    teacher_id UUID NOT NULL,
    title VARCHAR(200) NOT NULL DEFAULT '',
    calendar_day CHAR(10) NOT NULL,
    course_info JSONB NOT NULL DEFAULT '{}'::jsonb,
    templates JSONB NOT NULL DEFAULT '[]'::jsonb,
    published_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_publications_teacher_day
    ON lesson_plan_publications(school_id, teacher_id, calendar_day);
CREATE INDEX IF NOT EXISTS idx_publications_published_at
    ON lesson_plan_publications(published_at DESC);

-- Progress snapshots: last published position per (student, subject)
CREATE TABLE IF NOT EXISTS progress_snapshots (
    student_id UUID NOT NULL REFERENCES students(id) ON DELETE CASCADE,
    subject VARCHAR(30) NOT NULL,
    unit VARCHAR(30) NOT NULL DEFAULT '',
    lesson VARCHAR(30) NOT NULL DEFAULT '',
    title VARCHAR(200) NOT NULL DEFAULT '',
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    PRIMARY KEY (student_id, subject)
);

-- Progress overrides: teacher patches per (student, subject).
-- Own table so a later publish never discards an override.
CREATE TABLE IF NOT EXISTS progress_overrides (
    student_id UUID NOT NULL REFERENCES students(id) ON DELETE CASCADE,
    subject VARCHAR(30) NOT NULL,
    unit VARCHAR(30) NOT NULL DEFAULT '',
    lesson VARCHAR(30) NOT NULL DEFAULT '',
    title VARCHAR(200) NOT NULL DEFAULT '',
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    PRIMARY KEY (student_id, subject)
);
`

const migration002Down = `
DROP TABLE IF EXISTS progress_overrides;
DROP TABLE IF EXISTS progress_snapshots;
DROP TABLE IF EXISTS lesson_plan_publications;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: CREATE TASKS AND REWARDS
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
-- Migration: Create task records, reward policies and the reward ledger
-- Version: 003

-- Materialized per-student task records
CREATE TABLE IF NOT EXISTS task_records (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    school_id UUID NOT NULL,
    student_id UUID NOT NULL REFERENCES students(id) ON DELETE CASCADE,
    teacher_id UUID,
    publication_id UUID,
    title VARCHAR(200) NOT NULL,
    type VARCHAR(20) NOT NULL,
    status VARCHAR(20) NOT NULL DEFAULT 'PENDING',
    calendar_day CHAR(10) NOT NULL,
    content JSONB NOT NULL DEFAULT '{}'::jsonb,
    reward_exp INTEGER NOT NULL DEFAULT 0,
    reward_points INTEGER NOT NULL DEFAULT 0,
    attempts INTEGER NOT NULL DEFAULT 0,
    completed_at TIMESTAMP WITH TIME ZONE,
    settled_at TIMESTAMP WITH TIME ZONE,
    settled_exp INTEGER NOT NULL DEFAULT 0,
    settled_points INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_task_type CHECK (type IN ('QC', 'TASK', 'SPECIAL')),
    CONSTRAINT valid_task_status CHECK (status IN ('PENDING', 'COMPLETED'))
);

-- The materializer's idempotency key: re-publishing a plan never
-- double-creates a task.
CREATE UNIQUE INDEX IF NOT EXISTS uidx_task_records_dedup
    ON task_records(student_id, title, type, calendar_day);

CREATE INDEX IF NOT EXISTS idx_task_records_student_day
    ON task_records(student_id, calendar_day);
CREATE INDEX IF NOT EXISTS idx_task_records_publication
    ON task_records(publication_id);
CREATE INDEX IF NOT EXISTS idx_task_records_settled_window
    ON task_records(student_id, settled_at) WHERE settled_at IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_task_records_unsettled
    ON task_records(completed_at) WHERE status = 'COMPLETED' AND settled_at IS NULL;

-- Reward policy table
CREATE TABLE IF NOT EXISTS reward_policies (
    id VARCHAR(100) PRIMARY KEY,
    school_id UUID NOT NULL,
    module VARCHAR(20) NOT NULL,
    category VARCHAR(100) NOT NULL DEFAULT '',
    action VARCHAR(100) NOT NULL,
    exp_reward INTEGER NOT NULL DEFAULT 0,
    points_reward INTEGER NOT NULL DEFAULT 0,
    is_active BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_module CHECK (module IN ('PROGRESS', 'METHODOLOGY', 'PERSONALIZED', 'TASK')),
    CONSTRAINT uniq_policy_key UNIQUE (school_id, module, category, action)
);

CREATE INDEX IF NOT EXISTS idx_reward_policies_lookup
    ON reward_policies(school_id, module, action) WHERE is_active;

-- Append-only reward ledger: one signed row per award and per rollback.
-- Invariant: the sum of deltas per student equals the student's balance.
CREATE TABLE IF NOT EXISTS reward_events (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    school_id UUID NOT NULL,
    student_id UUID NOT NULL REFERENCES students(id) ON DELETE CASCADE,
    task_id UUID,
    kind VARCHAR(10) NOT NULL,
    exp_delta INTEGER NOT NULL DEFAULT 0,
    points_delta INTEGER NOT NULL DEFAULT 0,
    occurred_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_kind CHECK (kind IN ('award', 'rollback'))
);

CREATE INDEX IF NOT EXISTS idx_reward_events_student_time
    ON reward_events(student_id, occurred_at);
CREATE INDEX IF NOT EXISTS idx_reward_events_task
    ON reward_events(task_id);
`

const migration003Down = `
DROP TABLE IF EXISTS reward_events;
DROP TABLE IF EXISTS reward_policies;
DROP TABLE IF EXISTS task_records;
`
