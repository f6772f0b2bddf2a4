package service

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmadqo/bengkel-pinjam/internal/apperror"
	"github.com/ahmadqo/bengkel-pinjam/internal/model"
	"github.com/ahmadqo/bengkel-pinjam/internal/utils"
)

type loanFixture struct {
	store    *memStore
	notifier *countingNotifier
	svc      LoanService
	admin    model.Profile
	borrower model.Profile
}

func newLoanFixture(t *testing.T) *loanFixture {
	t.Helper()
	store := newMemStore()
	notifier := &countingNotifier{}
	svc := NewLoanService(
		memLoanRepo{store}, memItemRepo{store}, memProfileRepo{store}, store,
		notifier, SlipConfig{PublicURL: "http://localhost:8080", SchoolName: "SMK Negeri 1"},
		discardLogger(),
	)
	return &loanFixture{
		store:    store,
		notifier: notifier,
		svc:      svc,
		admin:    store.addProfile(model.RoleAdmin, model.AccountApproved),
		borrower: store.addProfile(model.RoleStudent, model.AccountApproved),
	}
}

func tomorrow() string {
	return time.Now().AddDate(0, 0, 1).Format(utils.DateLayout)
}

func TestSubmitCreatesPendingWithoutReservingStock(t *testing.T) {
	f := newLoanFixture(t)
	item := f.store.addItem("Kunci Momen", 5)

	loan, err := f.svc.Submit(context.Background(), f.borrower.ID.String(), model.SubmitLoanRequest{
		AlatID: item.ID.String(), Jumlah: 3, Keperluan: "praktik servis", TanggalKembaliRencana: tomorrow(),
	})
	require.NoError(t, err)

	assert.Equal(t, model.LoanPending, loan.Status)
	assert.False(t, loan.Dikembalikan)
	assert.Equal(t, utils.Today(), loan.TanggalPinjam)
	assert.Equal(t, 5, f.store.itemStock(item.ID), "pengajuan tidak mengurangi stok")
	assert.Equal(t, 1, f.notifier.count())
}

func TestSubmitValidation(t *testing.T) {
	f := newLoanFixture(t)
	item := f.store.addItem("Multimeter", 2)
	pending := f.store.addProfile(model.RoleGeneral, model.AccountPending)

	tests := []struct {
		name      string
		requester string
		req       model.SubmitLoanRequest
		wantKind  error
	}{
		{
			name:      "melebihi stok",
			requester: f.borrower.ID.String(),
			req:       model.SubmitLoanRequest{AlatID: item.ID.String(), Jumlah: 3, Keperluan: "x", TanggalKembaliRencana: tomorrow()},
			wantKind:  apperror.ErrValidation,
		},
		{
			name:      "jumlah nol",
			requester: f.borrower.ID.String(),
			req:       model.SubmitLoanRequest{AlatID: item.ID.String(), Jumlah: 0, Keperluan: "x", TanggalKembaliRencana: tomorrow()},
			wantKind:  apperror.ErrValidation,
		},
		{
			name:      "tanggal kembali kemarin",
			requester: f.borrower.ID.String(),
			req: model.SubmitLoanRequest{AlatID: item.ID.String(), Jumlah: 1, Keperluan: "x",
				TanggalKembaliRencana: time.Now().AddDate(0, 0, -1).Format(utils.DateLayout)},
			wantKind: apperror.ErrValidation,
		},
		{
			name:      "alat tidak ada",
			requester: f.borrower.ID.String(),
			req:       model.SubmitLoanRequest{AlatID: uuid.NewString(), Jumlah: 1, Keperluan: "x", TanggalKembaliRencana: tomorrow()},
			wantKind:  apperror.ErrNotFound,
		},
		{
			name:      "akun belum disetujui",
			requester: pending.ID.String(),
			req:       model.SubmitLoanRequest{AlatID: item.ID.String(), Jumlah: 1, Keperluan: "x", TanggalKembaliRencana: tomorrow()},
			wantKind:  apperror.ErrForbidden,
		},
		{
			name:      "admin tidak meminjam",
			requester: f.admin.ID.String(),
			req:       model.SubmitLoanRequest{AlatID: item.ID.String(), Jumlah: 1, Keperluan: "x", TanggalKembaliRencana: tomorrow()},
			wantKind:  apperror.ErrForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Submit(context.Background(), tt.requester, tt.req)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantKind)
		})
	}

	loans, _, err := f.svc.List(context.Background(), model.LoanFilter{})
	require.NoError(t, err)
	assert.Empty(t, loans)
}

func TestSubmitTodayIsAllowed(t *testing.T) {
	f := newLoanFixture(t)
	item := f.store.addItem("Obeng", 1)

	_, err := f.svc.Submit(context.Background(), f.borrower.ID.String(), model.SubmitLoanRequest{
		AlatID: item.ID.String(), Jumlah: 1, Keperluan: "x", TanggalKembaliRencana: utils.Today().Format(utils.DateLayout),
	})
	require.NoError(t, err)
}

func TestSubmitRejectsItemOutsideCatalog(t *testing.T) {
	f := newLoanFixture(t)
	item := f.store.addItem("Gerinda", 5)
	f.store.setStockLabel(item.ID, model.StockRestock)

	_, err := f.svc.Submit(context.Background(), f.borrower.ID.String(), model.SubmitLoanRequest{
		AlatID: item.ID.String(), Jumlah: 1, Keperluan: "praktik", TanggalKembaliRencana: tomorrow(),
	})
	require.ErrorIs(t, err, ErrItemUnavailable)
	assert.Equal(t, 0, f.notifier.count())

	f.store.setStockLabel(item.ID, model.StockLow)
	_, err = f.svc.Submit(context.Background(), f.borrower.ID.String(), model.SubmitLoanRequest{
		AlatID: item.ID.String(), Jumlah: 1, Keperluan: "praktik", TanggalKembaliRencana: tomorrow(),
	})
	require.NoError(t, err)
}

func TestSubmitBatchIsAllOrNothing(t *testing.T) {
	f := newLoanFixture(t)
	a := f.store.addItem("Tang", 4)
	b := f.store.addItem("Gergaji", 1)

	_, err := f.svc.SubmitBatch(context.Background(), f.borrower.ID.String(), model.SubmitBatchRequest{
		Items:                 []model.LoanItemRequest{{AlatID: a.ID.String(), Jumlah: 2}, {AlatID: b.ID.String(), Jumlah: 2}},
		Keperluan:             "praktik kayu",
		TanggalKembaliRencana: tomorrow(),
	})
	require.ErrorIs(t, err, ErrExceedsStock)

	loans, _, err := f.svc.List(context.Background(), model.LoanFilter{})
	require.NoError(t, err)
	assert.Empty(t, loans, "baris pertama ikut dibatalkan")

	created, err := f.svc.SubmitBatch(context.Background(), f.borrower.ID.String(), model.SubmitBatchRequest{
		Items:                 []model.LoanItemRequest{{AlatID: a.ID.String(), Jumlah: 2}, {AlatID: b.ID.String(), Jumlah: 1}},
		Keperluan:             "praktik kayu",
		TanggalKembaliRencana: tomorrow(),
	})
	require.NoError(t, err)
	assert.Len(t, created, 2)
}

func TestSubmitBatchRejectsDuplicateItems(t *testing.T) {
	f := newLoanFixture(t)
	a := f.store.addItem("Tang", 4)

	_, err := f.svc.SubmitBatch(context.Background(), f.borrower.ID.String(), model.SubmitBatchRequest{
		Items:                 []model.LoanItemRequest{{AlatID: a.ID.String(), Jumlah: 1}, {AlatID: a.ID.String(), Jumlah: 1}},
		Keperluan:             "x",
		TanggalKembaliRencana: tomorrow(),
	})
	assert.ErrorIs(t, err, ErrDuplicateItem)
}

func TestApproveDecrementsStockAndIsIdempotent(t *testing.T) {
	f := newLoanFixture(t)
	item := f.store.addItem("Bor Listrik", 5)
	loan := f.store.addLoan(f.borrower.ID, item.ID, 3, model.LoanPending)
	ctx := context.Background()

	got, err := f.svc.Decide(ctx, loan.ID.String(), f.admin.ID.String(), model.LoanApproved)
	require.NoError(t, err)
	assert.Equal(t, model.LoanApproved, got.Status)
	require.NotNil(t, got.QRToken)
	require.NotNil(t, got.DiputuskanOleh)
	assert.Equal(t, f.admin.ID, *got.DiputuskanOleh)
	assert.Equal(t, 2, f.store.itemStock(item.ID))

	again, err := f.svc.Decide(ctx, loan.ID.String(), f.admin.ID.String(), model.LoanApproved)
	require.NoError(t, err)
	assert.Equal(t, model.LoanApproved, again.Status)
	assert.Equal(t, *got.QRToken, *again.QRToken)
	assert.Equal(t, 2, f.store.itemStock(item.ID), "persetujuan ulang tidak mengubah stok")
	assert.Equal(t, 1, f.notifier.count())
}

func TestApproveClampsStockAtZero(t *testing.T) {
	f := newLoanFixture(t)
	item := f.store.addItem("Kikir", 4)
	first := f.store.addLoan(f.borrower.ID, item.ID, 3, model.LoanPending)
	second := f.store.addLoan(f.borrower.ID, item.ID, 3, model.LoanPending)
	ctx := context.Background()

	_, err := f.svc.Decide(ctx, first.ID.String(), f.admin.ID.String(), model.LoanApproved)
	require.NoError(t, err)
	_, err = f.svc.Decide(ctx, second.ID.String(), f.admin.ID.String(), model.LoanApproved)
	require.NoError(t, err)

	assert.Equal(t, 0, f.store.itemStock(item.ID))
}

func TestRejectLeavesStock(t *testing.T) {
	f := newLoanFixture(t)
	item := f.store.addItem("Palu", 2)
	loan := f.store.addLoan(f.borrower.ID, item.ID, 1, model.LoanPending)

	got, err := f.svc.Decide(context.Background(), loan.ID.String(), f.admin.ID.String(), model.LoanRejected)
	require.NoError(t, err)
	assert.Equal(t, model.LoanRejected, got.Status)
	assert.Nil(t, got.QRToken)
	assert.Equal(t, 2, f.store.itemStock(item.ID))
}

func TestDecideConflictingOutcome(t *testing.T) {
	f := newLoanFixture(t)
	item := f.store.addItem("Palu", 2)
	loan := f.store.addLoan(f.borrower.ID, item.ID, 1, model.LoanPending)
	ctx := context.Background()

	_, err := f.svc.Decide(ctx, loan.ID.String(), f.admin.ID.String(), model.LoanRejected)
	require.NoError(t, err)

	_, err = f.svc.Decide(ctx, loan.ID.String(), f.admin.ID.String(), model.LoanApproved)
	assert.ErrorIs(t, err, apperror.ErrInvalidState)
	assert.Equal(t, model.LoanRejected, f.store.loan(loan.ID).Status)
	assert.Equal(t, 2, f.store.itemStock(item.ID))
}

func TestDecideErrors(t *testing.T) {
	f := newLoanFixture(t)
	ctx := context.Background()

	_, err := f.svc.Decide(ctx, uuid.NewString(), f.admin.ID.String(), model.LoanApproved)
	assert.ErrorIs(t, err, ErrLoanNotFound)

	_, err = f.svc.Decide(ctx, "bukan-uuid", f.admin.ID.String(), model.LoanApproved)
	assert.ErrorIs(t, err, apperror.ErrValidation)

	item := f.store.addItem("Palu", 2)
	loan := f.store.addLoan(f.borrower.ID, item.ID, 1, model.LoanPending)
	_, err = f.svc.Decide(ctx, loan.ID.String(), f.admin.ID.String(), model.LoanCompleted)
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestApproveMissingItemPersistsNothing(t *testing.T) {
	f := newLoanFixture(t)
	item := f.store.addItem("Solder", 2)
	loan := f.store.addLoan(f.borrower.ID, item.ID, 1, model.LoanPending)
	f.store.deleteItem(item.ID)

	_, err := f.svc.Decide(context.Background(), loan.ID.String(), f.admin.ID.String(), model.LoanApproved)
	assert.ErrorIs(t, err, ErrItemNotFound)
	assert.Equal(t, model.LoanPending, f.store.loan(loan.ID).Status)
}

func TestStoreFailureRollsBackStatusAndStock(t *testing.T) {
	f := newLoanFixture(t)
	item := f.store.addItem("Gerinda", 5)
	loan := f.store.addLoan(f.borrower.ID, item.ID, 2, model.LoanPending)
	f.store.failOn("loans.UpdateState", errors.New("connection reset by peer"))

	_, err := f.svc.Decide(context.Background(), loan.ID.String(), f.admin.ID.String(), model.LoanApproved)
	require.ErrorIs(t, err, apperror.ErrStore)
	assert.True(t, apperror.IsRetryable(err))

	assert.Equal(t, 5, f.store.itemStock(item.ID), "stok ikut di-rollback")
	assert.Equal(t, model.LoanPending, f.store.loan(loan.ID).Status)
	assert.Equal(t, 0, f.notifier.count())
}

func TestReturnRestoresStock(t *testing.T) {
	f := newLoanFixture(t)
	item := f.store.addItem("Jangka Sorong", 5)
	loan := f.store.addLoan(f.borrower.ID, item.ID, 3, model.LoanPending)
	ctx := context.Background()

	_, err := f.svc.Decide(ctx, loan.ID.String(), f.admin.ID.String(), model.LoanApproved)
	require.NoError(t, err)
	require.Equal(t, 2, f.store.itemStock(item.ID))

	got, err := f.svc.ConfirmReturn(ctx, loan.ID.String(), f.admin.ID.String())
	require.NoError(t, err)
	assert.Equal(t, model.LoanCompleted, got.Status)
	assert.True(t, got.Dikembalikan)
	require.NotNil(t, got.TanggalKembali)
	assert.Equal(t, utils.Today(), *got.TanggalKembali)
	assert.Equal(t, 5, f.store.itemStock(item.ID))

	_, err = f.svc.ConfirmReturn(ctx, loan.ID.String(), f.admin.ID.String())
	assert.ErrorIs(t, err, apperror.ErrInvalidState)
	assert.Equal(t, 5, f.store.itemStock(item.ID), "pengembalian ganda tidak menambah stok")
}

func TestReturnRequiresApproved(t *testing.T) {
	f := newLoanFixture(t)
	item := f.store.addItem("Tang", 1)
	pending := f.store.addLoan(f.borrower.ID, item.ID, 1, model.LoanPending)
	rejected := f.store.addLoan(f.borrower.ID, item.ID, 1, model.LoanRejected)

	_, err := f.svc.ConfirmReturn(context.Background(), pending.ID.String(), f.admin.ID.String())
	assert.ErrorIs(t, err, apperror.ErrInvalidState)
	_, err = f.svc.ConfirmReturn(context.Background(), rejected.ID.String(), f.admin.ID.String())
	assert.ErrorIs(t, err, apperror.ErrInvalidState)
}

func TestReturnOfDeletedItemStillCompletes(t *testing.T) {
	f := newLoanFixture(t)
	item := f.store.addItem("Tang", 2)
	loan := f.store.addLoan(f.borrower.ID, item.ID, 1, model.LoanApproved)
	f.store.deleteItem(item.ID)

	got, err := f.svc.ConfirmReturn(context.Background(), loan.ID.String(), f.admin.ID.String())
	require.NoError(t, err)
	assert.Equal(t, model.LoanCompleted, got.Status)
	assert.Nil(t, got.NamaAlat)
}

func TestReturnOfDeletedItemLogsError(t *testing.T) {
	store := newMemStore()
	var logs bytes.Buffer
	svc := NewLoanService(
		memLoanRepo{store}, memItemRepo{store}, memProfileRepo{store}, store,
		nil, SlipConfig{}, slog.New(slog.NewTextHandler(&logs, nil)),
	)
	admin := store.addProfile(model.RoleAdmin, model.AccountApproved)
	borrower := store.addProfile(model.RoleStudent, model.AccountApproved)
	item := store.addItem("Tang", 2)
	loan := store.addLoan(borrower.ID, item.ID, 1, model.LoanApproved)
	store.deleteItem(item.ID)

	_, err := svc.ConfirmReturn(context.Background(), loan.ID.String(), admin.ID.String())
	require.NoError(t, err)
	assert.Contains(t, logs.String(), "level=ERROR")
	assert.Contains(t, logs.String(), "stock restore skipped")
	assert.Contains(t, logs.String(), item.ID.String())
}

// Persetujuan paralel atas satu permintaan hanya mengurangi stok sekali.
func TestConcurrentApprovalsOfSameLoan(t *testing.T) {
	f := newLoanFixture(t)
	item := f.store.addItem("Kunci Ring", 10)
	loan := f.store.addLoan(f.borrower.ID, item.ID, 4, model.LoanPending)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Decide(context.Background(), loan.ID.String(), f.admin.ID.String(), model.LoanApproved)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 6, f.store.itemStock(item.ID))
}

// Persetujuan paralel atas permintaan berbeda pada alat yang sama semuanya
// diterapkan, tidak ada update yang hilang.
func TestConcurrentApprovalsOfDifferentLoans(t *testing.T) {
	f := newLoanFixture(t)
	item := f.store.addItem("Kunci Pas", 20)

	var ids []uuid.UUID
	for i := 0; i < 5; i++ {
		ids = append(ids, f.store.addLoan(f.borrower.ID, item.ID, 3, model.LoanPending).ID)
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id uuid.UUID) {
			defer wg.Done()
			_, err := f.svc.Decide(context.Background(), id.String(), f.admin.ID.String(), model.LoanApproved)
			assert.NoError(t, err)
		}(id)
	}
	wg.Wait()

	assert.Equal(t, 5, f.store.itemStock(item.ID))
}

func TestGetByIDVisibility(t *testing.T) {
	f := newLoanFixture(t)
	other := f.store.addProfile(model.RoleTeacher, model.AccountApproved)
	item := f.store.addItem("Tang", 1)
	loan := f.store.addLoan(f.borrower.ID, item.ID, 1, model.LoanPending)
	ctx := context.Background()

	got, err := f.svc.GetByID(ctx, loan.ID.String(), Viewer{UserID: f.borrower.ID.String(), Role: model.RoleStudent})
	require.NoError(t, err)
	require.NotNil(t, got.NamaAlat)
	assert.Equal(t, "Tang", *got.NamaAlat)

	_, err = f.svc.GetByID(ctx, loan.ID.String(), Viewer{UserID: other.ID.String(), Role: model.RoleTeacher})
	assert.ErrorIs(t, err, ErrNotLoanOwner)

	_, err = f.svc.GetByID(ctx, loan.ID.String(), Viewer{UserID: f.admin.ID.String(), Role: model.RoleAdmin})
	assert.NoError(t, err)
}

func TestSlipAndVerify(t *testing.T) {
	f := newLoanFixture(t)
	item := f.store.addItem("Osiloskop", 2)
	loan := f.store.addLoan(f.borrower.ID, item.ID, 1, model.LoanPending)
	viewer := Viewer{UserID: f.borrower.ID.String(), Role: model.RoleStudent}
	ctx := context.Background()

	_, _, err := f.svc.Slip(ctx, loan.ID.String(), viewer)
	assert.ErrorIs(t, err, ErrSlipNotAvailable)

	approved, err := f.svc.Decide(ctx, loan.ID.String(), f.admin.ID.String(), model.LoanApproved)
	require.NoError(t, err)

	pdfBytes, filename, err := f.svc.Slip(ctx, loan.ID.String(), viewer)
	require.NoError(t, err)
	assert.NotEmpty(t, pdfBytes)
	assert.Contains(t, filename, loan.ID.String()[:8])

	res, err := f.svc.VerifySlip(ctx, *approved.QRToken)
	require.NoError(t, err)
	assert.True(t, res.IsValid)
	assert.True(t, res.MasihDipinjam)

	_, err = f.svc.ConfirmReturn(ctx, loan.ID.String(), f.admin.ID.String())
	require.NoError(t, err)

	res, err = f.svc.VerifySlip(ctx, *approved.QRToken)
	require.NoError(t, err)
	assert.True(t, res.IsValid)
	assert.False(t, res.MasihDipinjam)

	res, err = f.svc.VerifySlip(ctx, "tidak-ada")
	require.NoError(t, err)
	assert.False(t, res.IsValid)
}

func TestListNewestFirst(t *testing.T) {
	f := newLoanFixture(t)
	item := f.store.addItem("Tang", 5)
	older := f.store.addLoan(f.borrower.ID, item.ID, 1, model.LoanPending)
	time.Sleep(2 * time.Millisecond)
	newer := f.store.addLoan(f.borrower.ID, item.ID, 1, model.LoanPending)

	loans, page, err := f.svc.List(context.Background(), model.LoanFilter{Status: string(model.LoanPending)})
	require.NoError(t, err)
	require.Len(t, loans, 2)
	assert.Equal(t, newer.ID, loans[0].ID)
	assert.Equal(t, older.ID, loans[1].ID)
	assert.Equal(t, int64(2), page.TotalItems)

	mine, err := f.svc.MyLoans(context.Background(), f.borrower.ID.String())
	require.NoError(t, err)
	assert.Len(t, mine, 2)
}

func TestListRejectsMalformedFilterIDs(t *testing.T) {
	f := newLoanFixture(t)
	item := f.store.addItem("Obeng", 5)
	f.store.addLoan(f.borrower.ID, item.ID, 1, model.LoanPending)

	_, _, err := f.svc.List(context.Background(), model.LoanFilter{UserID: "bukan-uuid", AlatID: "123"})
	require.ErrorIs(t, err, apperror.ErrValidation)
	appErr, ok := apperror.As(err)
	require.True(t, ok)
	assert.Contains(t, appErr.Fields, "user_id")
	assert.Contains(t, appErr.Fields, "alat_id")

	loans, _, err := f.svc.List(context.Background(), model.LoanFilter{AlatID: item.ID.String()})
	require.NoError(t, err)
	assert.Len(t, loans, 1)
}
