package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	storeerr "github.com/antonminaichev/dermamart/internal/storage"
	"github.com/antonminaichev/dermamart/internal/types/order"
	"github.com/antonminaichev/dermamart/internal/types/payment"
	"github.com/antonminaichev/dermamart/internal/types/product"
	"github.com/antonminaichev/dermamart/internal/types/shipping"
	"github.com/antonminaichev/dermamart/internal/types/user"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
)

type PostgresStorage struct {
	db *sql.DB
}

func NewPostgresStorage(dsn string) (*PostgresStorage, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	s := &PostgresStorage{db: db}

	if err := s.db.Ping(); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStorage) initSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
            id TEXT PRIMARY KEY,
            name TEXT NOT NULL,
            email TEXT UNIQUE NOT NULL,
            password_hash TEXT NOT NULL,
            role TEXT NOT NULL,
            created_at TIMESTAMPTZ NOT NULL,
            updated_at TIMESTAMPTZ NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS products (
            id TEXT PRIMARY KEY,
            name TEXT NOT NULL,
            description TEXT NOT NULL DEFAULT '',
            price DOUBLE PRECISION NOT NULL,
            stock INT NOT NULL CHECK (stock >= 0),
            category TEXT NOT NULL DEFAULT '',
            image_url TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMPTZ NOT NULL,
            updated_at TIMESTAMPTZ NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS shipping_partners (
            id TEXT PRIMARY KEY,
            name TEXT NOT NULL,
            phone TEXT NOT NULL DEFAULT '',
            address TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMPTZ NOT NULL,
            updated_at TIMESTAMPTZ NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS orders (
            id TEXT PRIMARY KEY,
            user_id TEXT NOT NULL REFERENCES users(id),
            total_price DOUBLE PRECISION NOT NULL,
            status TEXT NOT NULL,
            payment_status TEXT NOT NULL,
            shipping_partner_id TEXT REFERENCES shipping_partners(id),
            created_at TIMESTAMPTZ NOT NULL,
            updated_at TIMESTAMPTZ NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS order_items (
            order_id TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
            position INT NOT NULL,
            product_id TEXT NOT NULL REFERENCES products(id),
            quantity INT NOT NULL CHECK (quantity >= 1),
            PRIMARY KEY (order_id, position)
        )`,
		`CREATE TABLE IF NOT EXISTS payments (
            id TEXT PRIMARY KEY,
            order_id TEXT UNIQUE NOT NULL REFERENCES orders(id),
            user_id TEXT NOT NULL REFERENCES users(id),
            method TEXT NOT NULL,
            amount DOUBLE PRECISION NOT NULL,
            status TEXT NOT NULL,
            payment_date TIMESTAMPTZ NOT NULL,
            created_at TIMESTAMPTZ NOT NULL,
            updated_at TIMESTAMPTZ NOT NULL
        )`,
	}
	for _, q := range stmts {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

func (s *PostgresStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStorage) Close() error {
	return s.db.Close()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

// ---------------------------------------------------------------- users

func (s *PostgresStorage) CreateUser(ctx context.Context, u *user.User) error {
	q := `INSERT INTO users (id,name,email,password_hash,role,created_at,updated_at)
          VALUES ($1,$2,$3,$4,$5,$6,$7)`
	_, err := s.db.ExecContext(ctx, q, u.ID, u.Name, u.Email, u.PasswordHash, u.Role, u.CreatedAt, u.UpdatedAt)
	if isUniqueViolation(err) {
		return storeerr.ErrUserExists
	}
	return err
}

func (s *PostgresStorage) FindUserByEmail(ctx context.Context, email string) (*user.User, error) {
	u := &user.User{}
	q := `SELECT id,name,email,password_hash,role,created_at,updated_at FROM users WHERE email=$1`
	err := s.db.QueryRowContext(ctx, q, email).
		Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storeerr.ErrUserNotFound
	}
	return u, err
}

func (s *PostgresStorage) FindUserByID(ctx context.Context, id string) (*user.User, error) {
	u := &user.User{}
	q := `SELECT id,name,email,password_hash,role,created_at,updated_at FROM users WHERE id=$1`
	err := s.db.QueryRowContext(ctx, q, id).
		Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storeerr.ErrUserNotFound
	}
	return u, err
}

func (s *PostgresStorage) ListUsers(ctx context.Context) ([]user.User, error) {
	q := `SELECT id,name,email,password_hash,role,created_at,updated_at FROM users ORDER BY created_at`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []user.User
	for rows.Next() {
		var u user.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *PostgresStorage) UpdateUserRole(ctx context.Context, id, role string) (*user.User, error) {
	u := &user.User{}
	q := `UPDATE users SET role=$1, updated_at=$2 WHERE id=$3
          RETURNING id,name,email,password_hash,role,created_at,updated_at`
	err := s.db.QueryRowContext(ctx, q, role, time.Now().UTC(), id).
		Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storeerr.ErrUserNotFound
	}
	return u, err
}

// ------------------------------------------------------------- products

func (s *PostgresStorage) CreateProduct(ctx context.Context, p *product.Product) error {
	q := `INSERT INTO products (id,name,description,price,stock,category,image_url,created_at,updated_at)
          VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`
	_, err := s.db.ExecContext(ctx, q,
		p.ID, p.Name, p.Description, p.Price, p.Stock, p.Category, p.ImageURL, p.CreatedAt, p.UpdatedAt)
	return err
}

func (s *PostgresStorage) GetProduct(ctx context.Context, id string) (*product.Product, error) {
	p := &product.Product{}
	q := `SELECT id,name,description,price,stock,category,image_url,created_at,updated_at
          FROM products WHERE id=$1`
	err := s.db.QueryRowContext(ctx, q, id).
		Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.Category, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storeerr.ErrProductNotFound
	}
	return p, err
}

func (s *PostgresStorage) ListProducts(ctx context.Context) ([]product.Product, error) {
	q := `SELECT id,name,description,price,stock,category,image_url,created_at,updated_at
          FROM products ORDER BY name`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []product.Product
	for rows.Next() {
		var p product.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.Category, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PostgresStorage) GetProductsByIDs(ctx context.Context, ids []string) (map[string]product.Product, error) {
	out := make(map[string]product.Product, len(ids))
	for _, id := range ids {
		p, err := s.GetProduct(ctx, id)
		if err != nil {
			if errors.Is(err, storeerr.ErrProductNotFound) {
				continue
			}
			return nil, err
		}
		out[id] = *p
	}
	return out, nil
}

func (s *PostgresStorage) UpdateProduct(ctx context.Context, p *product.Product) error {
	q := `UPDATE products SET name=$1, description=$2, price=$3, stock=$4, category=$5, image_url=$6, updated_at=$7
          WHERE id=$8`
	res, err := s.db.ExecContext(ctx, q,
		p.Name, p.Description, p.Price, p.Stock, p.Category, p.ImageURL, p.UpdatedAt, p.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storeerr.ErrProductNotFound
	}
	return nil
}

func (s *PostgresStorage) DeleteProduct(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id=$1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return storeerr.ErrProductInUse
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storeerr.ErrProductNotFound
	}
	return nil
}

// ------------------------------------------------------------- partners

func (s *PostgresStorage) CreatePartner(ctx context.Context, p *shipping.Partner) error {
	q := `INSERT INTO shipping_partners (id,name,phone,address,created_at,updated_at)
          VALUES ($1,$2,$3,$4,$5,$6)`
	_, err := s.db.ExecContext(ctx, q, p.ID, p.Name, p.Phone, p.Address, p.CreatedAt, p.UpdatedAt)
	return err
}

func (s *PostgresStorage) GetPartner(ctx context.Context, id string) (*shipping.Partner, error) {
	p := &shipping.Partner{}
	q := `SELECT id,name,phone,address,created_at,updated_at FROM shipping_partners WHERE id=$1`
	err := s.db.QueryRowContext(ctx, q, id).
		Scan(&p.ID, &p.Name, &p.Phone, &p.Address, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storeerr.ErrPartnerNotFound
	}
	return p, err
}

func (s *PostgresStorage) ListPartners(ctx context.Context) ([]shipping.Partner, error) {
	q := `SELECT id,name,phone,address,created_at,updated_at FROM shipping_partners ORDER BY name`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []shipping.Partner
	for rows.Next() {
		var p shipping.Partner
		if err := rows.Scan(&p.ID, &p.Name, &p.Phone, &p.Address, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PostgresStorage) UpdatePartner(ctx context.Context, p *shipping.Partner) error {
	q := `UPDATE shipping_partners SET name=$1, phone=$2, address=$3, updated_at=$4 WHERE id=$5`
	res, err := s.db.ExecContext(ctx, q, p.Name, p.Phone, p.Address, p.UpdatedAt, p.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storeerr.ErrPartnerNotFound
	}
	return nil
}

func (s *PostgresStorage) DeletePartner(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM shipping_partners WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storeerr.ErrPartnerNotFound
	}
	return nil
}

// --------------------------------------------------------------- orders

func (s *PostgresStorage) CreateOrder(ctx context.Context, o *order.Order) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
        INSERT INTO orders (id,user_id,total_price,status,payment_status,shipping_partner_id,created_at,updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		o.ID, o.UserID, o.TotalPrice, string(o.Status), string(o.PaymentStatus), o.ShippingPartnerID, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	if err = insertOrderItems(ctx, tx, o.ID, o.Items); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create order: %w", err)
	}
	return nil
}

func insertOrderItems(ctx context.Context, tx *sql.Tx, orderID string, items []order.Item) error {
	for i, item := range items {
		if _, err := tx.ExecContext(ctx, `
            INSERT INTO order_items (order_id,position,product_id,quantity)
            VALUES ($1,$2,$3,$4)`,
			orderID, i, item.ProductID, item.Quantity); err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}
	return nil
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func loadOrderItems(ctx context.Context, q querier, orderID string) ([]order.Item, error) {
	rows, err := q.QueryContext(ctx, `
        SELECT product_id, quantity FROM order_items
        WHERE order_id=$1 ORDER BY position`, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()

	var items []order.Item
	for rows.Next() {
		var it order.Item
		if err := rows.Scan(&it.ProductID, &it.Quantity); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (s *PostgresStorage) GetOrder(ctx context.Context, id string) (*order.Order, error) {
	o := &order.Order{}
	var status, paymentStatus string
	q := `SELECT id,user_id,total_price,status,payment_status,shipping_partner_id,created_at,updated_at
          FROM orders WHERE id=$1`
	err := s.db.QueryRowContext(ctx, q, id).
		Scan(&o.ID, &o.UserID, &o.TotalPrice, &status, &paymentStatus, &o.ShippingPartnerID, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storeerr.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select order: %w", err)
	}
	o.Status = order.Status(status)
	o.PaymentStatus = order.PaymentStatus(paymentStatus)

	o.Items, err = loadOrderItems(ctx, s.db, id)
	return o, err
}

const orderViewQuery = `
    SELECT o.id, o.total_price, o.status, o.payment_status, o.created_at, o.updated_at,
           u.id, u.name, u.email,
           sp.id, sp.name, sp.phone
    FROM orders o
    JOIN users u ON u.id = o.user_id
    LEFT JOIN shipping_partners sp ON sp.id = o.shipping_partner_id`

func scanOrderView(rows interface{ Scan(...any) error }) (*order.View, error) {
	var v order.View
	var status, paymentStatus string
	var spID, spName, spPhone sql.NullString
	if err := rows.Scan(
		&v.ID, &v.TotalPrice, &status, &paymentStatus, &v.CreatedAt, &v.UpdatedAt,
		&v.User.ID, &v.User.Name, &v.User.Email,
		&spID, &spName, &spPhone,
	); err != nil {
		return nil, err
	}
	v.Status = order.Status(status)
	v.PaymentStatus = order.PaymentStatus(paymentStatus)
	if spID.Valid {
		v.ShippingPartner = &order.PartnerSummary{ID: spID.String, Name: spName.String, Phone: spPhone.String}
	}
	return &v, nil
}

func (s *PostgresStorage) loadItemDetails(ctx context.Context, orderID string) ([]order.ItemDetail, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT oi.product_id, p.name, p.price, oi.quantity
        FROM order_items oi
        JOIN products p ON p.id = oi.product_id
        WHERE oi.order_id=$1 ORDER BY oi.position`, orderID)
	if err != nil {
		return nil, fmt.Errorf("load item details: %w", err)
	}
	defer rows.Close()

	details := make([]order.ItemDetail, 0)
	for rows.Next() {
		var d order.ItemDetail
		if err := rows.Scan(&d.ProductID, &d.Name, &d.Price, &d.Quantity); err != nil {
			return nil, err
		}
		details = append(details, d)
	}
	return details, rows.Err()
}

func (s *PostgresStorage) GetOrderView(ctx context.Context, id string) (*order.View, error) {
	row := s.db.QueryRowContext(ctx, orderViewQuery+` WHERE o.id=$1`, id)
	v, err := scanOrderView(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storeerr.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select order view: %w", err)
	}
	v.Products, err = s.loadItemDetails(ctx, id)
	return v, err
}

func (s *PostgresStorage) listOrderViews(ctx context.Context, query string, args ...any) ([]order.View, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var out []order.View
	for rows.Next() {
		v, err := scanOrderView(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Products, err = s.loadItemDetails(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *PostgresStorage) ListOrders(ctx context.Context) ([]order.View, error) {
	return s.listOrderViews(ctx, orderViewQuery+` ORDER BY o.created_at DESC`)
}

func (s *PostgresStorage) ListOrdersByUser(ctx context.Context, userID string) ([]order.View, error) {
	return s.listOrderViews(ctx, orderViewQuery+` WHERE o.user_id=$1 ORDER BY o.created_at DESC`, userID)
}

func (s *PostgresStorage) UpdateOrder(ctx context.Context, o *order.Order) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var res sql.Result
	res, err = tx.ExecContext(ctx, `
        UPDATE orders SET total_price=$1, status=$2, payment_status=$3, shipping_partner_id=$4, updated_at=$5
        WHERE id=$6`,
		o.TotalPrice, string(o.Status), string(o.PaymentStatus), o.ShippingPartnerID, o.UpdatedAt, o.ID)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		err = storeerr.ErrOrderNotFound
		return err
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM order_items WHERE order_id=$1`, o.ID); err != nil {
		return fmt.Errorf("delete order items: %w", err)
	}
	if err = insertOrderItems(ctx, tx, o.ID, o.Items); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit update order: %w", err)
	}
	return nil
}

func (s *PostgresStorage) DeleteOrder(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM orders WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storeerr.ErrOrderNotFound
	}
	return nil
}

// ------------------------------------------------------------- payments

func (s *PostgresStorage) CreatePayment(ctx context.Context, p *payment.Payment) error {
	q := `INSERT INTO payments (id,order_id,user_id,method,amount,status,payment_date,created_at,updated_at)
          VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`
	_, err := s.db.ExecContext(ctx, q,
		p.ID, p.OrderID, p.UserID, string(p.Method), p.Amount, string(p.Status), p.PaymentDate, p.CreatedAt, p.UpdatedAt)
	if isUniqueViolation(err) {
		return storeerr.ErrPaymentExists
	}
	return err
}

func scanPayment(row interface{ Scan(...any) error }) (*payment.Payment, error) {
	p := &payment.Payment{}
	var method, status string
	err := row.Scan(&p.ID, &p.OrderID, &p.UserID, &method, &p.Amount, &status, &p.PaymentDate, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Method = payment.Method(method)
	p.Status = payment.Status(status)
	return p, nil
}

func (s *PostgresStorage) GetPayment(ctx context.Context, id string) (*payment.Payment, error) {
	q := `SELECT id,order_id,user_id,method,amount,status,payment_date,created_at,updated_at
          FROM payments WHERE id=$1`
	p, err := scanPayment(s.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storeerr.ErrPaymentNotFound
	}
	return p, err
}

func (s *PostgresStorage) FindPaymentByOrder(ctx context.Context, orderID string) (*payment.Payment, error) {
	q := `SELECT id,order_id,user_id,method,amount,status,payment_date,created_at,updated_at
          FROM payments WHERE order_id=$1`
	p, err := scanPayment(s.db.QueryRowContext(ctx, q, orderID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storeerr.ErrPaymentNotFound
	}
	return p, err
}

const paymentViewQuery = `
    SELECT p.id, p.method, p.amount, p.status, p.payment_date, p.created_at,
           o.id, o.total_price, o.status,
           u.id, u.name, u.email
    FROM payments p
    JOIN orders o ON o.id = p.order_id
    JOIN users u ON u.id = p.user_id`

func (s *PostgresStorage) listPaymentViews(ctx context.Context, query string, args ...any) ([]payment.View, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var out []payment.View
	for rows.Next() {
		var v payment.View
		var method, status, orderStatus string
		if err := rows.Scan(
			&v.ID, &method, &v.Amount, &status, &v.PaymentDate, &v.CreatedAt,
			&v.Order.ID, &v.Order.TotalPrice, &orderStatus,
			&v.User.ID, &v.User.Name, &v.User.Email,
		); err != nil {
			return nil, err
		}
		v.Method = payment.Method(method)
		v.Status = payment.Status(status)
		v.Order.Status = order.Status(orderStatus)
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *PostgresStorage) ListPaymentsByUser(ctx context.Context, userID string) ([]payment.View, error) {
	return s.listPaymentViews(ctx, paymentViewQuery+` WHERE p.user_id=$1 ORDER BY p.payment_date DESC`, userID)
}

func (s *PostgresStorage) ListPayments(ctx context.Context) ([]payment.View, error) {
	return s.listPaymentViews(ctx, paymentViewQuery+` ORDER BY p.payment_date DESC`)
}

// SettlePayment performs the settlement as a single transaction: the
// payment and order rows are locked, the Pending->Completed transition
// guards against double settlement, every line's stock is decremented
// with a conditional update, and the order is marked delivered. Any
// failure rolls the whole unit back.
func (s *PostgresStorage) SettlePayment(ctx context.Context, id string) (*payment.Payment, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var p *payment.Payment
	p, err = scanPayment(tx.QueryRowContext(ctx, `
        SELECT id,order_id,user_id,method,amount,status,payment_date,created_at,updated_at
        FROM payments WHERE id=$1 FOR UPDATE`, id))
	if errors.Is(err, sql.ErrNoRows) {
		err = storeerr.ErrPaymentNotFound
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("select payment: %w", err)
	}
	if p.Status == payment.StatusCompleted {
		err = storeerr.ErrPaymentCompleted
		return nil, err
	}

	var orderStatus string
	err = tx.QueryRowContext(ctx, `
        SELECT status FROM orders WHERE id=$1 FOR UPDATE`, p.OrderID).Scan(&orderStatus)
	if errors.Is(err, sql.ErrNoRows) {
		err = storeerr.ErrOrderNotFound
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("select order for settlement: %w", err)
	}
	if order.Status(orderStatus) != order.StatusShipped {
		err = storeerr.ErrOrderNotShipped
		return nil, err
	}

	var items []order.Item
	items, err = loadOrderItems(ctx, tx, p.OrderID)
	if err != nil {
		return nil, err
	}

	for _, item := range items {
		var res sql.Result
		res, err = tx.ExecContext(ctx, `
            UPDATE products SET stock = stock - $1, updated_at = $2
            WHERE id = $3 AND stock >= $1`,
			item.Quantity, time.Now().UTC(), item.ProductID)
		if err != nil {
			return nil, fmt.Errorf("decrement stock: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			var name string
			var stock int
			if scanErr := tx.QueryRowContext(ctx, `SELECT name, stock FROM products WHERE id=$1`, item.ProductID).
				Scan(&name, &stock); scanErr != nil {
				if errors.Is(scanErr, sql.ErrNoRows) {
					err = storeerr.ErrProductNotFound
					return nil, err
				}
				err = scanErr
				return nil, err
			}
			err = &storeerr.InsufficientStockError{
				ProductID: item.ProductID,
				Name:      name,
				Stock:     stock,
				Requested: item.Quantity,
			}
			return nil, err
		}
	}

	now := time.Now().UTC()
	if _, err = tx.ExecContext(ctx, `
        UPDATE payments SET status=$1, payment_date=$2, updated_at=$2 WHERE id=$3`,
		string(payment.StatusCompleted), now, p.ID); err != nil {
		return nil, fmt.Errorf("complete payment: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `
        UPDATE orders SET status=$1, payment_status=$2, updated_at=$3 WHERE id=$4`,
		string(order.StatusDelivered), string(order.PaymentCompleted), now, p.OrderID); err != nil {
		return nil, fmt.Errorf("deliver order: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit settlement: %w", err)
	}

	p.Status = payment.StatusCompleted
	p.PaymentDate = now
	p.UpdatedAt = now
	return p, nil
}
