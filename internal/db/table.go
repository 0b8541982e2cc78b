package db

import (
	"context"

	"gorm.io/gorm"
)

// Table is plain CRUD over one library table. parentColumn scopes List for
// child records such as traits of an NPC.
type Table[T any] struct {
	conn         *gorm.DB
	parentColumn string
}

func NewTable[T any](conn *gorm.DB, parentColumn string) *Table[T] {
	return &Table[T]{conn: conn, parentColumn: parentColumn}
}

func (t *Table[T]) query(ctx context.Context) *gorm.DB {
	return t.conn.WithContext(ctx)
}

func (t *Table[T]) List(ctx context.Context, parentID string) ([]T, error) {
	var records []T
	q := t.query(ctx)
	if t.parentColumn != "" && parentID != "" {
		q = q.Where(t.parentColumn+" = ?", parentID)
	}
	err := q.Order("name asc").Find(&records).Error
	return records, err
}

func (t *Table[T]) Get(ctx context.Context, id string) (T, error) {
	var record T
	err := t.query(ctx).Where("id = ?", id).First(&record).Error
	return record, notFound(err)
}

func (t *Table[T]) Create(ctx context.Context, record *T) error {
	return t.conn.WithContext(ctx).Create(record).Error
}

func (t *Table[T]) Save(ctx context.Context, record *T) error {
	return t.conn.WithContext(ctx).Save(record).Error
}

func (t *Table[T]) Delete(ctx context.Context, id string) error {
	var record T
	result := t.conn.WithContext(ctx).Where("id = ?", id).Delete(&record)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
