package models

import "time"

// Transaction is one entry of an NFT's append-only sale history.
type Transaction struct {
	ID              uint         `json:"id" gorm:"primaryKey;autoIncrement"`
	NFTID           string       `json:"nftId" gorm:"index;type:varchar(36);not null"`
	FromID          string       `json:"from" gorm:"type:varchar(36);not null"`
	From            *UserSummary `json:"fromUser,omitempty" gorm:"foreignKey:FromID;-:migration"`
	ToID            string       `json:"to" gorm:"type:varchar(36);not null"`
	To              *UserSummary `json:"toUser,omitempty" gorm:"foreignKey:ToID;-:migration"`
	Price           float64      `json:"price" gorm:"not null"`
	TransactionHash string       `json:"transactionHash" gorm:"uniqueIndex;type:varchar(66);not null"`
	Timestamp       time.Time    `json:"timestamp" gorm:"index;not null"`
}

// TableName names the history table.
func (Transaction) TableName() string {
	return "nft_transactions"
}
