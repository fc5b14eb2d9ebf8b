package services

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/netbill/backend/internal/billing"
	"github.com/netbill/backend/internal/calendar"
	"github.com/netbill/backend/internal/config"
	"github.com/netbill/backend/internal/models"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// ReportExportService writes a monthly income workbook on the first day
// of each month and, when FTP is configured, uploads it to the office
// file server.
type ReportExportService struct {
	engine *billing.Engine
	db     *gorm.DB
	cfg    *config.Config

	stopChan      chan struct{}
	wg            sync.WaitGroup
	lastExportDay calendar.Date
}

// NewReportExportService creates a new report export service
func NewReportExportService(engine *billing.Engine, db *gorm.DB, cfg *config.Config) *ReportExportService {
	return &ReportExportService{
		engine:   engine,
		db:       db,
		cfg:      cfg,
		stopChan: make(chan struct{}),
	}
}

// Start begins the report export scheduler
func (s *ReportExportService) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		log.Println("ReportExportService started")

		ticker := time.NewTicker(1 * time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.checkAndExport()
			case <-s.stopChan:
				log.Println("ReportExportService stopped")
				return
			}
		}
	}()
}

// Stop stops the report export service
func (s *ReportExportService) Stop() {
	close(s.stopChan)
	s.wg.Wait()
}

func (s *ReportExportService) checkAndExport() {
	now := s.engine.Clock().Now()
	if now.Day() != 1 || now.Hour() < s.engine.CutoffHour() {
		return
	}
	today := calendar.DateOf(now)
	if s.lastExportDay.Equal(today) {
		return
	}
	s.lastExportDay = today

	// Export covers the month that just ended
	closedMonth := today.AddMonths(-1)
	if err := s.exportMonth(closedMonth); err != nil {
		log.Printf("ReportExportService: Export for %s failed: %v", closedMonth.MonthLabel(), err)
	}
}

// exportMonth builds and ships the income workbook for one billing month
func (s *ReportExportService) exportMonth(month calendar.Date) error {
	f, err := BuildIncomeWorkbook(s.db, month.MonthLabel())
	if err != nil {
		return err
	}
	defer f.Close()

	if err := os.MkdirAll(s.cfg.ReportExportDir, 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}

	filename := fmt.Sprintf("income-%04d-%02d.xlsx", month.Year, int(month.Month))
	localPath := filepath.Join(s.cfg.ReportExportDir, filename)
	if err := f.SaveAs(localPath); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	log.Printf("ReportExportService: Wrote %s", localPath)

	if s.cfg.ReportFTPHost == "" {
		return nil
	}
	if err := s.uploadToFTP(localPath, filename); err != nil {
		// Local copy succeeded; FTP failure should not look like a failed export
		log.Printf("ReportExportService: FTP upload failed for %s: %v", filename, err)
	}
	return nil
}

// uploadToFTP ships a report file to the configured FTP server
func (s *ReportExportService) uploadToFTP(localPath, filename string) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.ReportFTPHost, s.cfg.ReportFTPPort)
	conn, err := ftp.Dial(addr, ftp.DialWithTimeout(30*time.Second))
	if err != nil {
		return fmt.Errorf("FTP connection failed: %w", err)
	}
	defer conn.Quit()

	if err := conn.Login(s.cfg.ReportFTPUser, s.cfg.ReportFTPPassword); err != nil {
		return fmt.Errorf("FTP login failed: %w", err)
	}

	if s.cfg.ReportFTPPath != "" && s.cfg.ReportFTPPath != "/" {
		if err := conn.ChangeDir(s.cfg.ReportFTPPath); err != nil {
			conn.MakeDir(s.cfg.ReportFTPPath)
			if err := conn.ChangeDir(s.cfg.ReportFTPPath); err != nil {
				return fmt.Errorf("FTP directory change failed: %w", err)
			}
		}
	}

	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open local file: %w", err)
	}
	defer file.Close()

	if err := conn.Stor(filename, file); err != nil {
		return fmt.Errorf("FTP upload failed: %w", err)
	}

	log.Printf("ReportExportService: Uploaded %s to FTP %s", filename, s.cfg.ReportFTPHost)
	return nil
}

// BuildIncomeWorkbook assembles the income statement for one billing
// month: a sheet of per-receiver running totals and a sheet of the
// month's itemized payments. Shared by the scheduled export and the
// on-demand report download.
func BuildIncomeWorkbook(db *gorm.DB, monthLabel string) (*excelize.File, error) {
	f := excelize.NewFile()

	const incomeSheet = "Income"
	f.SetSheetName("Sheet1", incomeSheet)
	f.SetCellValue(incomeSheet, "A1", "Receiver")
	f.SetCellValue(incomeSheet, "B1", "Cash Income")
	f.SetCellValue(incomeSheet, "C1", "Bank Income")
	f.SetCellValue(incomeSheet, "D1", "Total")

	var records []models.IncomeRecord
	if err := db.Order("receiver ASC").Find(&records).Error; err != nil {
		return nil, err
	}
	for i, r := range records {
		row := i + 2
		f.SetCellValue(incomeSheet, fmt.Sprintf("A%d", row), r.Receiver)
		f.SetCellValue(incomeSheet, fmt.Sprintf("B%d", row), r.CashIncome)
		f.SetCellValue(incomeSheet, fmt.Sprintf("C%d", row), r.BankIncome)
		f.SetCellValue(incomeSheet, fmt.Sprintf("D%d", row), r.Total())
	}

	const paymentsSheet = "Payments"
	f.NewSheet(paymentsSheet)
	f.SetCellValue(paymentsSheet, "A1", "Subscriber")
	f.SetCellValue(paymentsSheet, "B1", "Month")
	f.SetCellValue(paymentsSheet, "C1", "Amount")
	f.SetCellValue(paymentsSheet, "D1", "Method")
	f.SetCellValue(paymentsSheet, "E1", "Receiver")
	f.SetCellValue(paymentsSheet, "F1", "Paid At")

	type paymentRow struct {
		SubscriberName string
		Label          string
		Amount         float64
		Method         string
		Receiver       string
		PaidAt         time.Time
	}
	var payments []paymentRow
	err := db.Table("payment_entries").
		Select("vouchers.subscriber_name, month_entries.label, payment_entries.amount, payment_entries.method, payment_entries.receiver, payment_entries.paid_at").
		Joins("JOIN month_entries ON month_entries.id = payment_entries.month_entry_id").
		Joins("JOIN vouchers ON vouchers.id = month_entries.voucher_id").
		Where("month_entries.label = ?", monthLabel).
		Order("payment_entries.paid_at ASC").
		Scan(&payments).Error
	if err != nil {
		return nil, err
	}
	for i, p := range payments {
		row := i + 2
		f.SetCellValue(paymentsSheet, fmt.Sprintf("A%d", row), p.SubscriberName)
		f.SetCellValue(paymentsSheet, fmt.Sprintf("B%d", row), p.Label)
		f.SetCellValue(paymentsSheet, fmt.Sprintf("C%d", row), p.Amount)
		f.SetCellValue(paymentsSheet, fmt.Sprintf("D%d", row), p.Method)
		f.SetCellValue(paymentsSheet, fmt.Sprintf("E%d", row), p.Receiver)
		f.SetCellValue(paymentsSheet, fmt.Sprintf("F%d", row), p.PaidAt.Format("2006-01-02 15:04"))
	}

	return f, nil
}
